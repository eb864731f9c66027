//go:build amd64 || arm64 || ppc64 || ppc64le || s390x

package pad

// CacheLineSize covers architectures that prefetch pairs of 64-byte lines.
const CacheLineSize = 128
