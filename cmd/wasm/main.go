//go:build js && wasm
// +build js,wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"syscall/js"

	"github.com/santinoo1919/medtrixmap/internal/category"
	"github.com/santinoo1919/medtrixmap/internal/config"
	"github.com/santinoo1919/medtrixmap/internal/session"
	"github.com/santinoo1919/medtrixmap/internal/types"
	"github.com/santinoo1919/medtrixmap/internal/viewport"
)

// bridge runs one map session inside the page and forwards its updates to
// JavaScript callbacks.
type bridge struct {
	sess   *session.Session
	cancel context.CancelFunc
}

var current *bridge

func errorResult(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}

func okResult() map[string]any {
	return map[string]any{"status": "ok"}
}

// medtrixInit starts the session. args[0] is a callback receiving a JSON
// message string ({type, payload}) for every update.
func medtrixInit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return map[string]any{"error": "missing update callback"}
	}
	if current != nil {
		current.cancel()
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	bindings, err := session.Bind(config.DefaultSources(), logger)
	if err != nil {
		return errorResult(err)
	}
	sess, err := session.New(session.Config{
		Sources:  bindings,
		Debounce: viewport.DefaultQuietPeriod,
		Logger:   logger,
	})
	if err != nil {
		return errorResult(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	current = &bridge{sess: sess, cancel: cancel}

	callback := args[0]
	go func() {
		for u := range sess.Updates() {
			var msg map[string]any
			switch {
			case u.Layers != nil:
				msg = map[string]any{"type": "layers", "payload": u.Layers}
			case u.SourceError != nil:
				msg = map[string]any{"type": "source_error", "payload": u.SourceError}
			default:
				continue
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Error("failed to encode update", "error", err)
				continue
			}
			callback.Invoke(string(data))
		}
	}()
	go func() {
		if err := sess.Run(ctx); err != nil {
			logger.Error("session failed", "error", err)
		}
	}()

	return map[string]any{"status": "ready", "session": sess.ID()}
}

func parseBounds(args []js.Value) (types.BoundingBox, error) {
	var box types.BoundingBox
	if len(args) < 1 {
		return box, fmt.Errorf("missing bounds")
	}
	if err := json.Unmarshal([]byte(args[0].String()), &box); err != nil {
		return box, fmt.Errorf("failed to parse bounds: %w", err)
	}
	return box, box.Validate()
}

// withSession wraps fn so it runs against the current session.
func withSession(fn func(s *session.Session, args []js.Value) error) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if current == nil {
			return map[string]any{"error": "call medtrixInit first"}
		}
		if err := fn(current.sess, args); err != nil {
			return errorResult(err)
		}
		return okResult()
	})
}

func main() {
	c := make(chan struct{})

	js.Global().Set("medtrixInit", js.FuncOf(medtrixInit))
	js.Global().Set("medtrixReady", withSession(func(s *session.Session, args []js.Value) error {
		box, err := parseBounds(args)
		if err != nil {
			return err
		}
		return s.Ready(box)
	}))
	js.Global().Set("medtrixMove", withSession(func(s *session.Session, args []js.Value) error {
		box, err := parseBounds(args)
		if err != nil {
			return err
		}
		return s.Move(box)
	}))
	js.Global().Set("medtrixToggleCategory", withSession(func(s *session.Session, args []js.Value) error {
		// null or undefined selects the "other" bucket
		if len(args) < 1 || args[0].IsNull() || args[0].IsUndefined() {
			return s.ToggleCategory(category.Other)
		}
		raw := args[0].String()
		if args[0].Type() == js.TypeNumber {
			raw = fmt.Sprint(args[0].Int())
		}
		c, err := category.Parse(raw)
		if err != nil {
			return err
		}
		return s.ToggleCategory(c)
	}))
	js.Global().Set("medtrixToggleSource", withSession(func(s *session.Session, args []js.Value) error {
		if len(args) < 1 {
			return fmt.Errorf("missing source id")
		}
		return s.ToggleSource(args[0].String())
	}))
	js.Global().Set("medtrixSelectRegion", withSession(func(s *session.Session, args []js.Value) error {
		if len(args) < 2 {
			return fmt.Errorf("expected source id and region")
		}
		return s.SelectRegion(args[0].String(), args[1].String())
	}))

	fmt.Println("MedtrixMap WASM module loaded")
	<-c
}
