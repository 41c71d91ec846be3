package exception

import (
	"fmt"
	"os"
	"runtime/debug"

	"tokend/logx"
	"tokend/monitoring"
)

// SafeGo runs fn on a new goroutine and survives its panics: the panic is
// counted, logged with a stack trace and swallowed.
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				monitoring.IncreasePanicCount()
				logx.Error("GOROUTINE", fmt.Sprintf("Panic in %s: %v\n%s", name, r, debug.Stack()))
			}
		}()
		fn()
	}()
}

// SafeGoWithPanic is SafeGo for goroutines the process cannot live without:
// the panic is counted and logged, then the process exits.
func SafeGoWithPanic(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				monitoring.IncreasePanicCount()
				logx.Error("GOROUTINE", fmt.Sprintf("Panic in %s: %v\n%s", name, r, debug.Stack()))
				os.Exit(1)
			}
		}()
		fn()
	}()
}
