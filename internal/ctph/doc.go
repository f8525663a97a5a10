// Package ctph implements context-triggered piecewise hashing: a fuzzy hash
// whose digests can be compared for near-duplicate detection.
//
// # Algorithm
//
// Input elements (bytes, or int64 token ids) are fed through a rolling hash
// (see package rolling) and appended to a piece buffer. A piece ends when
//
//   - the rolling hash modulo the digest size equals digestSize-1, or
//   - the piece reaches a hard ceiling: 64*windowSize bytes for byte input,
//     windowSize tokens for token input.
//
// Each finished piece is hashed with BLAKE3, truncated to the precision width
// (1, 2, 4 or 8 bytes; always 8 for tokens) and hex encoded. Every digestSize
// pieces form one block. A trailing partial piece is appended to the last
// block. The digest is
//
//	windowSize:digestSize:block0:block1:...
//
// Because boundaries depend only on local content, a small edit moves only the
// nearby boundaries and most blocks survive unchanged. Similarity compares two
// digests as sets of blocks (Jaccard index).
//
// # Concurrency
//
// Hasher and TokenHasher hold only parameters and may be shared between
// goroutines. Each Compute call, and each Stream, owns its own rolling state.
package ctph
