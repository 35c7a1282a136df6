// Package antireplay detects ClientHello messages which were already
// seen by a gateway.
//
// # Overview
//
// A censor that watched a legitimate TLS session can replay its first
// flight to a gateway and see if it behaves like a proxy. A gateway keeps
// 32-byte random values of every ClientHello it accepted and treats a
// repeated random as an active probe. Real browsers never reuse it.
//
// # Stable Bloom Filter
//
// The main implementation uses a Stable Bloom Filter, which is a probabilistic
// data structure that can maintain a constant false positive rate even with
// unbounded streams of data.
//
// Key characteristics:
//   - Constant memory usage (configurable via byteSize)
//   - Configurable false positive rate (default: 0.01 or 1%)
//   - Thread-safe via mutex protection
//   - No false negatives for recent items
//
// # Usage Example
//
//	cache := antireplay.NewStableBloomFilter(
//	    1024*1024,  // 1 MB memory
//	    0.01,       // 1% false positive rate
//	)
//
//	if cache.SeenBefore(helloRandom) {
//	    // replayed ClientHello, send a decoy
//	}
//
// # Mathematical Foundation
//
// Based on "Approximately Detecting Duplicates for Streaming Data using Stable Bloom Filters"
// by Deng and Rafiei (2006): http://webdocs.cs.ualberta.ca/~drafiei/papers/DupDet06Sigmod.pdf
//
// The stability is achieved by randomly resetting P cells for each insertion,
// where P is chosen to maintain constant false positive rate as elements are added.
//
// # Security Considerations
//
//   - False positives (1% default): a legitimate client may occasionally
//     get a decoy page. It reconnects with a fresh random.
//
//   - Hash collision attacks: Uses xxHash (non-cryptographic). Random values
//     are chosen by clients, so collisions do not help an attacker to pass.
package antireplay
