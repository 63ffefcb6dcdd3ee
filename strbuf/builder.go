// Package strbuf provides a growable text buffer whose storage lives in a
// memarena arena.
package strbuf

import (
	"fmt"

	"github.com/hupe1980/memarena"
)

// Builder is a NUL-terminated text buffer stored in an arena. Growing the
// buffer moves it to a larger allocation in the same arena, so the handle
// returned by Ptr changes; the zero Builder is not usable, use New.
type Builder struct {
	m   *memarena.Manager
	ctx memarena.Context
	p   memarena.Ptr
	n   int
	cap int
}

// New returns a Builder holding s. ctx selects the arena, either directly
// or through any live allocation in it.
func New(m *memarena.Manager, ctx memarena.Context, s string) (*Builder, error) {
	b := &Builder{m: m, ctx: ctx}
	if err := b.set(s, memarena.Caller(1)); err != nil {
		return nil, err
	}
	return b, nil
}

// Len returns the text length in bytes.
func (b *Builder) Len() int { return b.n }

// Cap returns how many bytes of text fit without growing.
func (b *Builder) Cap() int { return b.cap }

// Ptr returns the current allocation, or the zero Ptr after Free.
func (b *Builder) Ptr() memarena.Ptr { return b.p }

// String returns a copy of the text.
func (b *Builder) String() string {
	if b.p.IsZero() {
		return ""
	}
	buf, err := b.m.Bytes(b.p)
	if err != nil {
		return ""
	}
	return string(buf[:b.n])
}

// Reserve makes room for n bytes of text plus the terminator.
func (b *Builder) Reserve(n int) error {
	return b.reserve(n, memarena.Caller(1))
}

func (b *Builder) reserve(n int, site memarena.Site) error {
	if n < 0 {
		return fmt.Errorf("strbuf: reserve %d: %w", n, memarena.ErrInvalidSize)
	}
	if !b.p.IsZero() && b.cap >= n {
		return nil
	}

	var (
		p   memarena.Ptr
		err error
	)
	if b.p.IsZero() {
		p, err = b.m.Alloc(b.ctx, n+1, memarena.At(site))
	} else {
		p, err = b.m.Realloc(b.p, n+1, memarena.At(site))
	}
	if err != nil {
		return err
	}

	b.p = p
	b.cap = n
	return b.terminate()
}

// Set replaces the text with s.
func (b *Builder) Set(s string) error {
	return b.set(s, memarena.Caller(1))
}

func (b *Builder) set(s string, site memarena.Site) error {
	if err := b.reserve(len(s), site); err != nil {
		return err
	}
	buf, err := b.m.Bytes(b.p)
	if err != nil {
		return err
	}
	b.n = copy(buf, s)
	return b.terminate()
}

// Append adds s to the end of the text.
func (b *Builder) Append(s string) error {
	return b.append(s, memarena.Caller(1))
}

// AppendBytes adds p to the end of the text.
func (b *Builder) AppendBytes(p []byte) error {
	return b.append(string(p), memarena.Caller(1))
}

func (b *Builder) append(s string, site memarena.Site) error {
	if s == "" {
		return nil
	}
	if err := b.reserve(b.n+len(s), site); err != nil {
		return err
	}
	buf, err := b.m.Bytes(b.p)
	if err != nil {
		return err
	}
	b.n += copy(buf[b.n:], s)
	return b.terminate()
}

// AppendByte adds c to the end of the text. Once the buffer is within two
// bytes of full it grows by half of the current length, so appending in a
// loop does not move the buffer every time. A zero byte is ignored.
func (b *Builder) AppendByte(c byte) error {
	if c == 0 {
		return nil
	}
	if b.p.IsZero() || b.n+2 >= b.cap {
		if err := b.reserve(max(b.n+2, b.n+b.n/2), memarena.Caller(1)); err != nil {
			return err
		}
	}
	buf, err := b.m.Bytes(b.p)
	if err != nil {
		return err
	}
	buf[b.n] = c
	b.n++
	return b.terminate()
}

// Appendf formats according to format and appends the result.
func (b *Builder) Appendf(format string, args ...any) error {
	return b.append(fmt.Sprintf(format, args...), memarena.Caller(1))
}

// Strip returns a new allocation in the same arena holding the text without
// leading and trailing whitespace and control characters. The Builder is
// not changed.
func (b *Builder) Strip() (memarena.Ptr, error) {
	text := b.String()
	i, j := 0, len(text)
	for i < j && !isGraph(text[i]) {
		i++
	}
	for j > i && !isGraph(text[j-1]) {
		j--
	}
	return b.dup(b.p, text[i:j])
}

// Dup copies the text into a new NUL-terminated allocation in ctx.
func (b *Builder) Dup(ctx memarena.Context) (memarena.Ptr, error) {
	return b.dup(ctx, b.String())
}

func (b *Builder) dup(ctx memarena.Context, s string) (memarena.Ptr, error) {
	if b.p.IsZero() {
		return memarena.Ptr{}, fmt.Errorf("strbuf: %w: builder was freed", memarena.ErrInvalidHandle)
	}
	p, err := b.m.Alloc(ctx, len(s)+1, memarena.At(memarena.Caller(2)))
	if err != nil {
		return memarena.Ptr{}, err
	}
	buf, err := b.m.Bytes(p)
	if err != nil {
		return memarena.Ptr{}, err
	}
	copy(buf, s)
	buf[len(s)] = 0
	return p, nil
}

// Free releases the storage. The Builder can be reused with Set afterwards.
func (b *Builder) Free() error {
	if b.p.IsZero() {
		return nil
	}
	if err := b.m.Free(&b.p); err != nil {
		return err
	}
	b.n = 0
	b.cap = 0
	return nil
}

func (b *Builder) terminate() error {
	buf, err := b.m.Bytes(b.p)
	if err != nil {
		return err
	}
	buf[b.n] = 0
	return nil
}

func isGraph(c byte) bool {
	return c > ' ' && c < 0x7f
}
