package segment

import (
	"crypto/rand"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// MaxNameLength is the fixed length of every generated segment name. It
// stays well under the POSIX shm name limit while leaving 128 bits of
// randomness after a typical process-name prefix.
const MaxNameLength = 30

// nameAlphabet has exactly 64 symbols so the random tail packs 6 bits per
// character straight out of a 128-bit value.
const nameAlphabet = "0123456789_ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

var processPrefix = func() string {
	name := ""
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if n, err := p.Name(); err == nil {
			name = n
		}
	}
	if name == "" {
		name = filepath.Base(os.Args[0])
	}
	return sanitizePrefix(name)
}()

// sanitizePrefix keeps the prefix inside the name alphabet and short enough
// to leave room for the random tail.
func sanitizePrefix(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= MaxNameLength-8 {
			break
		}
	}
	return b.String()
}

// generateName returns a MaxNameLength-character name: the process-identity
// prefix followed by random symbols from nameAlphabet. Collisions are
// statistically negligible; the lifecycle manager retries on the ones the
// OS still reports.
func generateName() string {
	rest := MaxNameLength - len(processPrefix)
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		// crypto/rand only fails on a broken platform. The constant tail
		// still works: creation is exclusive and collides into a retry.
		return processPrefix + strings.Repeat("0", rest)
	}
	n := new(big.Int).SetBytes(raw[:])
	sixtyFour := big.NewInt(64)
	mod := new(big.Int)
	tail := make([]byte, rest)
	for i := range tail {
		n.DivMod(n, sixtyFour, mod)
		tail[i] = nameAlphabet[mod.Int64()]
	}
	return processPrefix + string(tail)
}
