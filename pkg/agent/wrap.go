package agent

import (
	"reflect"
	"time"
	"unsafe"

	"github.com/argusops/argus-go/pkg/domain"
)

// funcID identifies a callable in the wrap cache by the address of its
// funcval. Code pointers are shared by every closure over one body; funcval
// addresses are unique per closure instance, so two closures from the same
// constructor never collide. The cache retains each callable strongly, so an
// address is never reused while its key is live.
func funcID(v any) uintptr {
	type iface struct {
		typ  unsafe.Pointer
		data unsafe.Pointer
	}
	return uintptr((*iface)(unsafe.Pointer(&v)).data)
}

// binding holds the per-wrapper state: the cached wrapper itself plus the
// registration-time context attached to every error it reports.
type binding struct {
	wrapper reflect.Value
	// wrapped is the wrapper boxed once, so every Watch of the same
	// original returns the identical value.
	wrapped   any
	bindStack []domain.StackFrame
	bindTime  time.Time
}

// Watch intercepts a callable value. Non-func values are returned unchanged.
// Wrapping is idempotent: an already-wrapped callable comes back as the
// existing wrapper, never double-wrapped. The wrapper invokes the original
// with the same arguments and returns its results untouched; a panic in the
// original is reported with entry kind "catch" and re-panicked with the
// identical value, so downstream recovery observes exactly what it would
// have without the agent.
func (a *Agent) Watch(v any) (out any) {
	// Hostile values can panic under inspection; degrade to a pass-through.
	defer func() {
		if recover() != nil {
			out = v
		}
	}()

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Func || rv.IsNil() {
		return v
	}

	id := funcID(v)

	a.watchMu.Lock()
	defer a.watchMu.Unlock()

	if _, ok := a.wrapperIDs[id]; ok {
		return v // already one of our wrappers
	}
	if b, ok := a.watched[id]; ok {
		return b.wrapped
	}

	b := &binding{bindTime: time.Now()}
	if a.cfg.BindStack {
		b.bindStack = captureStack(3)
	}

	orig := rv
	b.wrapper = reflect.MakeFunc(rv.Type(), func(args []reflect.Value) []reflect.Value {
		return a.invoke(orig, b, args)
	})
	b.wrapped = b.wrapper.Interface()

	a.watched[id] = b
	a.wrapperIDs[funcID(b.wrapped)] = struct{}{}
	return b.wrapped
}

// invoke runs the original callable on behalf of its wrapper.
func (a *Agent) invoke(orig reflect.Value, b *binding, args []reflect.Value) []reflect.Value {
	defer func() {
		if r := recover(); r != nil {
			a.reportRecovered(r, domain.KindCatch, b)
			panic(r)
		}
	}()

	var out []reflect.Value
	if orig.Type().IsVariadic() {
		out = orig.CallSlice(args)
	} else {
		out = orig.Call(args)
	}

	if a.cfg.CaptureReturnedErrors && len(out) > 0 {
		if err, ok := out[len(out)-1].Interface().(error); ok && err != nil {
			a.report(domain.KindCatch, Normalize(err), b, err, false)
		}
	}
	return out
}

// WatchAll wraps every func-typed member of target in place: exported func
// fields of a struct pointer, or func values of a map[string]any. Members
// named in excluded are skipped. Returns target for chaining.
func (a *Agent) WatchAll(target any, excluded ...string) any {
	skip := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		skip[name] = true
	}

	switch m := target.(type) {
	case map[string]any:
		for name, value := range m {
			if skip[name] {
				continue
			}
			if reflect.ValueOf(value).Kind() == reflect.Func {
				m[name] = a.Watch(value)
			}
		}
		return target
	}

	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return target
	}

	elem := rv.Elem()
	t := elem.Type()
	for i := 0; i < elem.NumField(); i++ {
		field := elem.Field(i)
		if field.Kind() != reflect.Func || !field.CanSet() || skip[t.Field(i).Name] {
			continue
		}
		if field.IsNil() {
			continue
		}
		field.Set(reflect.ValueOf(a.Watch(field.Interface())))
	}
	return target
}

// Go runs fn on a new goroutine with panic reporting (entry kind "promise",
// the asynchronous capture path). The panic is re-raised after reporting so
// crash semantics are unchanged.
func (a *Agent) Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.reportRecovered(r, domain.KindPromise, nil)
				panic(r)
			}
		}()
		fn()
	}()
}

// reportRecovered normalizes a recovered panic value and feeds it to the
// reporting pipeline.
func (a *Agent) reportRecovered(r any, kind domain.EntryKind, b *binding) {
	a.report(kind, Normalize(r), b, r, false)
}
