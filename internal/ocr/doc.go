// Package ocr turns a cropped image into text.
//
// Every backend implements Extractor. Two are provided:
//
//   - LLMExtractor sends the crop to a vision language model through
//     langchaingo. Supported providers are "openai", "anthropic", "mistral"
//     and "ollama".
//   - TesseractExtractor runs Tesseract locally through gosseract. It is only
//     available in cgo builds; other builds get a stub that always fails with
//     ErrTesseractUnavailable.
//
// Use New to build the backend selected by a Config.
//
// # Prerequisites
//
// The Tesseract backend needs the Tesseract library and language data:
//   - Ubuntu/Debian: apt-get install libtesseract-dev tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// # Error Handling
//
// Failures while talking to a backend are returned as *ServiceError. Its
// Error method yields a message suitable for end users; the underlying cause
// is available through errors.Unwrap and Detail. Configuration problems
// found by New are plain errors.
//
// Text is returned exactly as the backend produced it. Line breaks and
// surrounding whitespace are not altered.
package ocr
