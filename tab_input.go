package chromectl

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/chromectl/chromectl/kb"
	"github.com/chromectl/chromectl/protocol"
)

// TypeStr splits s into runes and presses each in turn, per spec.md §4.6
// "type_str(s)".
func (t *Tab) TypeStr(ctx context.Context, s string) error {
	for _, r := range s {
		if err := t.pressRune(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tab) pressRune(ctx context.Context, r rune) error {
	k := kb.ForRune(r)
	return t.dispatchKey(ctx, k)
}

// PressKey looks up a named key (e.g. "Enter", "Backspace", "ArrowDown")
// and dispatches the down/up pair, per spec.md §4.6 "press_key(k)".
func (t *Tab) PressKey(ctx context.Context, name string) error {
	k, ok := kb.Lookup(name)
	if !ok {
		if utf8.RuneCountInString(name) == 1 {
			r, _ := utf8.DecodeRuneInString(name)
			k = kb.ForRune(r)
		} else {
			return Error("chromectl: unknown key " + name)
		}
	}
	return t.dispatchKey(ctx, k)
}

func (t *Tab) dispatchKey(ctx context.Context, k kb.Key) error {
	t.sleepSlowMotion(25 * time.Millisecond)
	down := protocol.DispatchKeyEvent("keyDown").
		WithText(k.Text).
		WithUnmodifiedText(k.Unmodified).
		WithKey(k.Key).
		WithCode(k.Code).
		WithNativeVirtualKeyCode(k.Native).
		WithWindowsVirtualKeyCode(k.Windows)
	if err := down.Do(ctx, t); err != nil {
		return err
	}

	up := protocol.DispatchKeyEvent("keyUp").
		WithKey(k.Key).
		WithCode(k.Code).
		WithNativeVirtualKeyCode(k.Native).
		WithWindowsVirtualKeyCode(k.Windows)
	return up.Do(ctx, t)
}

// Point is a device-independent-pixel coordinate.
type Point struct {
	X, Y float64
}

// ClickPoint moves the mouse to p then presses and releases the left
// button, per spec.md §4.6 "click_point(p)". The move and the press are
// each preceded by an optional slow-motion sleep; the release is not.
func (t *Tab) ClickPoint(ctx context.Context, p Point) error {
	t.sleepSlowMotion(100 * time.Millisecond)
	if err := protocol.DispatchMouseEvent("mouseMoved", p.X, p.Y).Do(ctx, t); err != nil {
		return err
	}

	t.sleepSlowMotion(250 * time.Millisecond)
	press := protocol.DispatchMouseEvent("mousePressed", p.X, p.Y).WithButton("left").WithClickCount(1)
	if err := press.Do(ctx, t); err != nil {
		return err
	}

	release := protocol.DispatchMouseEvent("mouseReleased", p.X, p.Y).WithButton("left").WithClickCount(1)
	return release.Do(ctx, t)
}
