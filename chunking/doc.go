// Package chunking splits cleaned text into bounded chunks along sentence
// boundaries.
//
// Sentences are runs of text ending in '.', '!' or '?' together with the
// whitespace that follows them. Sentences are accumulated greedily until
// the next one would push the chunk past the maximum length. A sentence that
// alone exceeds the maximum becomes its own chunk and is never cut.
//
// Chunks are exact spans of the input, so joining them reproduces the input.
// Splitter adapts the chunker to langchaingo's textsplitter.TextSplitter.
package chunking
