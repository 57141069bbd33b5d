package grove

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// Shared test types and constructors used across test files.

// mustProvide calls t.Fatal if registration fails.
func mustProvide(t *testing.T, r *Registry, constructor any, opts ...ProvideOption) {
	t.Helper()
	require.NoError(t, r.Provide(constructor, opts...), "Provide")
}

// mustCreate calls t.Fatal if creation fails.
func mustCreate[T any](t *testing.T, c *Container, id string, args ...any) T {
	t.Helper()
	v, err := Resolve[T](c, id, args...)
	require.NoError(t, err, "Create(%q)", id)
	return v
}

// newTestContainer registers the common fixtures and returns a container
// with no rules.
func newTestContainer(t *testing.T, opts ...Option) (*Container, *Registry) {
	t.Helper()
	r := NewRegistry()
	mustProvide(t, r, newTestLogger)
	mustProvide(t, r, newTestConfig)
	mustProvide(t, r, newTestDatabase)
	mustProvide(t, r, newTestUserService)
	mustProvide(t, r, newCycA)
	mustProvide(t, r, newCycB)
	mustProvide(t, r, newLoopA)
	mustProvide(t, r, newLoopB)
	mustProvide(t, r, newSelfRef)
	mustProvide(t, r, newSelfPeer)
	mustProvide(t, r, newPair, WithParamNames("foo", "bar"))
	mustProvide(t, r, newMixedPair)
	mustProvide(t, r, newBestMatch)
	mustProvide(t, r, newGreetingService)
	mustProvide(t, r, newEnglishGreeter)
	mustProvide(t, r, newSpanishGreeter)
	mustProvide(t, r, newUserRepo)
	mustProvide(t, r, newShareTop)
	mustProvide(t, r, newShareLeft)
	mustProvide(t, r, newShareRight)
	mustProvide(t, r, newSharedCounter)
	mustProvide(t, r, newCallTarget)
	mustProvide(t, r, newNullable)
	mustProvide(t, r, newWithDefault, WithDefault(0, "bar"))
	mustProvide(t, r, newOptionalGreeter, WithDefault(0, nil))
	mustProvide(t, r, newFailing)
	mustProvide(t, r, newPairHolder)
	mustProvide(t, r, newBrokenService)
	Declare[greeter](r)
	Declare[namer](r)
	return New(r, opts...), r
}

type testLogger struct{ Prefix string }
type testConfig struct{ DSN string }

type testDatabase struct {
	Config *testConfig
	Logger *testLogger
}

type testUserService struct {
	DB     *testDatabase
	Logger *testLogger
}

func newTestLogger() *testLogger { return &testLogger{Prefix: "app"} }
func newTestConfig() *testConfig { return &testConfig{DSN: "postgres://localhost"} }

func newTestDatabase(cfg *testConfig, log *testLogger) *testDatabase {
	return &testDatabase{Config: cfg, Logger: log}
}

func newTestUserService(db *testDatabase, log *testLogger) *testUserService {
	return &testUserService{DB: db, Logger: log}
}

// cycA and cycB depend on each other; the cycle is legal once cycB is shared.
type cycA struct{ B *cycB }
type cycB struct{ A *cycA }

func newCycA(b *cycB) *cycA { return &cycA{B: b} }
func newCycB(a *cycA) *cycB { return &cycB{A: a} }

type loopA struct{ B *loopB }
type loopB struct{ A *loopA }

func newLoopA(b *loopB) *loopA { return &loopA{B: b} }
func newLoopB(a *loopA) *loopB { return &loopB{A: a} }

// selfRef keeps a pointer to itself and sits in a cycle with selfPeer.
type selfRef struct {
	Peer *selfPeer
	self *selfRef
}
type selfPeer struct{ Ref *selfRef }

func newSelfRef(p *selfPeer) *selfRef {
	s := &selfRef{Peer: p}
	s.self = s
	return s
}

func newSelfPeer(r *selfRef) *selfPeer { return &selfPeer{Ref: r} }

type pair struct{ Foo, Bar string }

func newPair(foo, bar string) *pair { return &pair{Foo: foo, Bar: bar} }

type mixedPair struct {
	Logger   *testLogger
	Foo, Bar string
}

func newMixedPair(l *testLogger, foo, bar string) *mixedPair {
	return &mixedPair{Logger: l, Foo: foo, Bar: bar}
}

type bestMatch struct {
	S      string
	Logger *testLogger
}

func newBestMatch(s string, l *testLogger) *bestMatch { return &bestMatch{S: s, Logger: l} }

type greeter interface{ Greet() string }

// namer is implemented by every greeter; it exists to test ancestor order.
type namer interface{ Name() string }

// greeters carry a field so that distinct instances never share an address.
type englishGreeter struct{ calls int }

func (*englishGreeter) Greet() string { return "hello" }
func (*englishGreeter) Name() string  { return "en" }

type spanishGreeter struct{ calls int }

func (*spanishGreeter) Greet() string { return "hola" }
func (*spanishGreeter) Name() string  { return "es" }

func newEnglishGreeter() *englishGreeter { return &englishGreeter{} }
func newSpanishGreeter() *spanishGreeter { return &spanishGreeter{} }

type greetingService struct{ G greeter }

func newGreetingService(g greeter) *greetingService { return &greetingService{G: g} }

// baseRepo is embedded by userRepo; rules for baseRepo govern userRepo.
type baseRepo struct{ Table string }
type userRepo struct{ baseRepo }

func newUserRepo(table string) *userRepo { return &userRepo{baseRepo{Table: table}} }

var sharedCount int

type sharedCounter struct{ N int }

func newSharedCounter() *sharedCounter {
	sharedCount++
	return &sharedCounter{N: sharedCount}
}

type shareLeft struct{ S *sharedCounter }
type shareRight struct {
	S    *sharedCounter
	Left *shareLeft
}
type shareTop struct {
	Left  *shareLeft
	Right *shareRight
}

func newShareLeft(s *sharedCounter) *shareLeft { return &shareLeft{S: s} }

func newShareRight(s *sharedCounter, l *shareLeft) *shareRight {
	return &shareRight{S: s, Left: l}
}

func newShareTop(l *shareLeft, r *shareRight) *shareTop { return &shareTop{Left: l, Right: r} }

type callTarget struct {
	Called   bool
	Foo, Bar string
	Logger   *testLogger
	Order    []string
}

func newCallTarget() *callTarget { return &callTarget{} }

func (c *callTarget) CallMe() {
	c.Called = true
	c.Order = append(c.Order, "CallMe")
}

func (c *callTarget) SetPair(foo, bar string) {
	c.Foo, c.Bar = foo, bar
	c.Order = append(c.Order, "SetPair")
}

func (c *callTarget) SetLogger(l *testLogger) { c.Logger = l }

func (c *callTarget) Fail() error { return errors.New("boom") }

type nullable struct {
	S    string
	Null *string
}

func newNullable(s string, null *string) *nullable { return &nullable{S: s, Null: null} }

type withDefault struct{ Foo string }

func newWithDefault(foo string) *withDefault { return &withDefault{Foo: foo} }

type optionalGreeter struct{ G greeter }

func newOptionalGreeter(g greeter) *optionalGreeter { return &optionalGreeter{G: g} }

type failing struct{}

func newFailing() (*failing, error) { return nil, errors.New("dial failed") }

type pairHolder struct{ P *pair }

func newPairHolder(p *pair) *pairHolder { return &pairHolder{P: p} }

// brokenService depends on a shared-able logger and on a constructor that
// always fails.
type brokenService struct{}

func newBrokenService(_ *testLogger, _ *failing) *brokenService { return &brokenService{} }
