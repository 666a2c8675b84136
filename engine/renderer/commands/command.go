package commands

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"github.com/spaghettifunk/renderqueue/engine/core"
	"github.com/spaghettifunk/renderqueue/engine/renderer"
)

// Command is implemented by every command payload type, on its pointer receiver.
// Payloads live in arena memory, so they must not hold Go pointers: no strings,
// slices, maps, interfaces or pointers. Resources are referenced by index or id.
type Command interface {
	Dispatch(backend renderer.Backend)
}

// DispatchFunc turns a payload stored in the arena into backend calls.
type DispatchFunc func(backend renderer.Backend, payload unsafe.Pointer)

type commandPtr[T any] interface {
	*T
	Command
}

// dispatchCommand is instantiated once per payload type, so the dispatch
// function of a command is fixed at compile time.
func dispatchCommand[T any, PT commandPtr[T]](backend renderer.Backend, payload unsafe.Pointer) {
	PT((*T)(payload)).Dispatch(backend)
}

// commandHeader sits right before every payload in the arena.
type commandHeader struct {
	slot    int32
	auxSize uint32
}

const headerSize = int(unsafe.Sizeof(commandHeader{}))

type payloadLayout struct {
	size  int
	align int
	err   error
}

var layouts sync.Map // reflect.Type -> payloadLayout

func layoutOf[T any]() payloadLayout {
	t := reflect.TypeFor[T]()
	if l, ok := layouts.Load(t); ok {
		return l.(payloadLayout)
	}
	var zero T
	l := payloadLayout{
		size:  int(unsafe.Sizeof(zero)),
		align: int(unsafe.Alignof(zero)),
	}
	if hasPointers(t) {
		l.err = fmt.Errorf("%w: %s", core.ErrPayloadHasPointers, t)
	}
	layouts.Store(t, l)
	return l
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan, reflect.Func,
		reflect.Interface, reflect.Slice, reflect.String:
		return true
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
