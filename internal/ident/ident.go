// Package ident derives stable run identifiers and per-game seeds.
package ident

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"
)

// RunID builds the on-disk run identifier:
// {experiment_name}-{UTC stamp YYYYMMDDTHHMMSSZ}-{config_hash[:8]}.
func RunID(experimentName, configHash string, now time.Time) string {
	stamp := now.UTC().Format("20060102T150405Z")
	short := configHash
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s-%s-%s", experimentName, stamp, short)
}

// GameSeed derives the per-game seed: the first 32 bits of
// SHA-256("<base_seed>:<game_number>") read big-endian as an unsigned int.
func GameSeed(baseSeed, gameNumber int) uint32 {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%d", baseSeed, gameNumber)))
	return binary.BigEndian.Uint32(sum[:4])
}
