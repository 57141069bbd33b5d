package grove

import (
	"fmt"
	"strings"
)

// instanceCache is the container-wide singleton map, keyed by the
// normalised identifier that was requested, never by the concrete type.
type instanceCache struct {
	items map[string]any
}

func newInstanceCache() *instanceCache {
	return &instanceCache{items: make(map[string]any)}
}

func (c *instanceCache) get(key string) (any, bool) {
	v, ok := c.items[key]
	return v, ok
}

func (c *instanceCache) put(key string, v any) { c.items[key] = v }

func (c *instanceCache) delete(key string) { delete(c.items, key) }

// inflight marks a singleton whose constructor has not returned yet.
type inflight struct {
	forward Forward
}

// frame is one level of the construction stack.
type frame struct {
	key     string
	hadArgs bool
	// shared frames register an inflight entry, so a cycle passing
	// through them is closed with a forward handle.
	shared bool
}

// request is the state of one top-level Create call. It is created when
// the call starts, threaded through every nested construction and dropped
// when the call returns. Create calls made by factories and callbacks while
// it is active join it instead of starting their own.
type request struct {
	shared map[string]any
	stack  []frame

	// share is the request-scoped list in effect for the object being
	// built, picked up by joined calls.
	share []string

	// singletons lists cache entries written by this request so they can
	// be rolled back when the request fails.
	singletons []string

	// scoped is the identifier currently being built for the request map.
	scoped string
}

func newRequest() *request {
	return &request{shared: make(map[string]any)}
}

// push records that key is being built. Re-entering key with no shared
// frame in between would repeat the same construction forever, so it is
// reported as a cycle. A frame that carried call-site arguments is exempt,
// since the dependencies it pulls in never do.
//
// Shared frames are never checked: a second build of a shared key is
// answered with a forward handle before it reaches push, so the only way
// to meet the key again is below a CreateNew of the same identifier.
func (r *request) push(key string, hadArgs, shared bool) error {
	if !shared {
		for j := len(r.stack) - 1; j >= 0; j-- {
			f := r.stack[j]
			if f.key == key {
				if f.hadArgs {
					break
				}
				return r.circularError(j, key)
			}
			if f.shared {
				break
			}
		}
	}
	r.stack = append(r.stack, frame{key: key, hadArgs: hadArgs, shared: shared})
	return nil
}

func (r *request) pop() {
	r.stack = r.stack[:len(r.stack)-1]
}

func (r *request) circularError(from int, key string) error {
	chain := make([]string, 0, len(r.stack)-from+1)
	for _, f := range r.stack[from:] {
		chain = append(chain, f.key)
	}
	chain = append(chain, key)

	return fmt.Errorf("%w: %s", ErrCircularDependency, strings.Join(chain, " -> "))
}
