// Package dispatch selects the codec backends used by zxc streams.
//
// A Table bundles one backend per codec family. Tables differ only in how
// they decode: every table shares the same encoders, so the compressed bytes
// of a stream never depend on which table a process selected.
//
// Select probes the CPU once per process and caches the result:
//
//	codec, err := dispatch.Select().Codec(format.CodecLZ4)
//
// The ZXC_BACKEND environment variable overrides the choice. It accepts
// "scalar", "accelerated" and "auto" and is read on the first call to Select.
package dispatch

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/klauspost/cpuid/v2"

	"github.com/arloliu/zxc/compress"
	"github.com/arloliu/zxc/errs"
	"github.com/arloliu/zxc/format"
)

// EnvBackend names the environment variable that forces a backend variant.
const EnvBackend = "ZXC_BACKEND"

// Variant identifies a backend implementation.
type Variant string

const (
	// VariantScalar uses portable Go decoders only. Always available.
	VariantScalar Variant = "scalar"
	// VariantAccelerated uses the assembly block decoders shipped with the
	// codec libraries. Available on amd64 and arm64.
	VariantAccelerated Variant = "accelerated"
	// VariantAuto picks the best variant available on this machine.
	VariantAuto Variant = "auto"
)

// ParseVariant parses a ZXC_BACKEND value. The empty string means auto.
func ParseVariant(s string) (Variant, bool) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantAuto:
		return VariantAuto, true
	case VariantScalar:
		return VariantScalar, true
	case VariantAccelerated:
		return VariantAccelerated, true
	default:
		return "", false
	}
}

// Table holds the backends of one variant. It is immutable once built and
// safe for concurrent use.
type Table struct {
	variant  Variant
	cpu      string
	features []string
	lz4      compress.LZ4Codec
	s2       compress.S2Codec
	zstd     compress.ZstdCodec
	none     compress.NoOpCodec
}

func newTable(variant Variant) *Table {
	t := &Table{
		variant:  variant,
		cpu:      describeCPU(),
		features: probeFeatures(),
		s2:       compress.NewS2Codec(),
		zstd:     compress.NewZstdCodec(),
		none:     compress.NewNoOpCodec(),
	}
	if variant == VariantAccelerated {
		t.lz4 = compress.NewLZ4Codec()
	} else {
		t.lz4 = compress.NewScalarLZ4Codec()
	}

	return t
}

// Variant returns the backend variant of the table.
func (t *Table) Variant() Variant {
	return t.variant
}

// CPU returns a human-readable description of the processor.
func (t *Table) CPU() string {
	return t.cpu
}

// Features returns the CPU features the probe found relevant.
func (t *Table) Features() []string {
	return append([]string(nil), t.features...)
}

// Codec returns the backend for a codec family.
func (t *Table) Codec(c format.Codec) (compress.Codec, error) {
	switch c {
	case format.CodecLZ4:
		return t.lz4, nil
	case format.CodecS2:
		return t.s2, nil
	case format.CodecZstd:
		return t.zstd, nil
	case format.CodecNone:
		return t.none, nil
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidCodec, c)
	}
}

func (t *Table) String() string {
	if len(t.features) == 0 {
		return fmt.Sprintf("%s (%s/%s, %s)", t.variant, runtime.GOOS, runtime.GOARCH, t.cpu)
	}

	return fmt.Sprintf("%s (%s/%s, %s, %s)", t.variant, runtime.GOOS, runtime.GOARCH, t.cpu,
		strings.Join(t.features, " "))
}

var selected = sync.OnceValue(func() *Table {
	return selectTable(os.Getenv(EnvBackend), acceleratedAvailable(), slog.Default())
})

// Select returns the process-wide table, probing the CPU on the first call.
// Later calls return the same table. Probing never fails: unknown hardware
// gets the scalar table.
func Select() *Table {
	return selected()
}

// Candidates returns every table usable on this machine, scalar first.
func Candidates() []*Table {
	tables := []*Table{newTable(VariantScalar)}
	if acceleratedAvailable() {
		tables = append(tables, newTable(VariantAccelerated))
	}

	return tables
}

func selectTable(choice string, accelerated bool, logger *slog.Logger) *Table {
	variant, ok := ParseVariant(choice)
	if !ok {
		logger.Warn("unknown backend override, using auto", "env", EnvBackend, "value", choice)
		variant = VariantAuto
	}
	if variant == VariantAccelerated && !accelerated {
		logger.Warn("accelerated backend unavailable, using auto",
			"env", EnvBackend, "arch", runtime.GOARCH)
		variant = VariantAuto
	}
	if variant == VariantAuto {
		variant = VariantScalar
		if accelerated {
			variant = VariantAccelerated
		}
	}

	t := newTable(variant)
	logger.Debug("selected backend", "variant", t.variant, "cpu", t.cpu, "features", t.features)

	return t
}

func describeCPU() string {
	name := strings.TrimSpace(cpuid.CPU.BrandName)
	if name == "" {
		name = "unknown cpu"
	}

	return fmt.Sprintf("%s, %d logical cores", name, cpuid.CPU.LogicalCores)
}
