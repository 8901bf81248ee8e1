//go:build !debug

package debug

// Assert, AssertNoErr and Func are no-ops outside debug builds — the
// invariant checks cost nothing in production, matching the teacher's
// debug/non-debug split.
func Assert(cond bool, a ...interface{}) {}

func AssertNoErr(err error) {}

func Func(f func()) {}
