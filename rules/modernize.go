//go:build ruleguard

// Package gorules defines custom linter rules for this repository. The set is
// small on purpose, each rule targets a pattern that has actually shown up in
// review here: hand-rolled min/max in the image scaler, magic time format
// strings around the audit log, Sprintf host:port assembly in the server and
// MQTT client, and manual WaitGroup bookkeeping in shutdown paths.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// WaitGroupGo flags the Add/Done goroutine dance that Go 1.25's wg.Go()
// replaces.
//
//	wg.Add(1)
//	go func() {
//	    defer wg.Done()
//	    work()
//	}()
//
// becomes:
//
//	wg.Go(work)
func WaitGroupGo(m dsl.Matcher) {
	m.Match(
		`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`,
	).
		Where(m["wg"].Type.Is("*sync.WaitGroup") || m["wg"].Type.Is("sync.WaitGroup")).
		Report("use $wg.Go(func() { $body }) instead of manual Add/Done pattern (Go 1.25+)").
		Suggest("$wg.Go(func() { $body })")

	m.Match(`go func() { defer $wg.Done(); $*_ }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup")).
		Report("use $wg.Go(func() { ... }) instead of go func() { defer $wg.Done(); ... }() (Go 1.25+)")
}

// TimeFormatConstants flags magic date/time layout strings that have named
// constants since Go 1.20.
func TimeFormatConstants(m dsl.Matcher) {
	m.Match(
		`$t.Format("2006-01-02 15:04:05")`,
	).
		Report(`use $t.Format(time.DateTime) instead of magic format string (Go 1.20+)`).
		Suggest(`$t.Format(time.DateTime)`)

	m.Match(
		`$t.Format("2006-01-02")`,
	).
		Report(`use $t.Format(time.DateOnly) instead of magic format string (Go 1.20+)`).
		Suggest(`$t.Format(time.DateOnly)`)

	m.Match(
		`$t.Format("15:04:05")`,
	).
		Report(`use $t.Format(time.TimeOnly) instead of magic format string (Go 1.20+)`).
		Suggest(`$t.Format(time.TimeOnly)`)

	m.Match(
		`time.Parse("2006-01-02 15:04:05", $s)`,
	).
		Report(`use time.Parse(time.DateTime, $s) instead of magic format string (Go 1.20+)`).
		Suggest(`time.Parse(time.DateTime, $s)`)
}

// JoinHostPort flags Sprintf host:port assembly. net.JoinHostPort brackets
// IPv6 addresses, Sprintf does not.
//
// Only integer ports are flagged, string "%s:%s" shows up too often in cache
// keys and identifiers to be a reliable signal.
func JoinHostPort(m dsl.Matcher) {
	m.Match(
		`fmt.Sprintf("%s:%d", $host, $port)`,
		`fmt.Sprintf("%v:%d", $host, $port)`,
	).
		Report("use net.JoinHostPort($host, strconv.Itoa($port)) instead of fmt.Sprintf for host:port (handles IPv6 correctly)")
}

// MinMaxBuiltin flags the math.Min/math.Max float round trip on integers,
// the builtins cover it since Go 1.21.
func MinMaxBuiltin(m dsl.Matcher) {
	m.Match(
		`int(math.Min(float64($a), float64($b)))`,
	).
		Report("use min($a, $b) instead of int(math.Min(float64(...))) (Go 1.21+)").
		Suggest("min($a, $b)")

	m.Match(
		`int(math.Max(float64($a), float64($b)))`,
	).
		Report("use max($a, $b) instead of int(math.Max(float64(...))) (Go 1.21+)").
		Suggest("max($a, $b)")

	// The manual if form, common in clamp helpers
	m.Match(
		`if $a < $b { $x = $a } else { $x = $b }`,
	).
		Report("consider $x = min($a, $b) (Go 1.21+)")
}

// RangeOverInt flags counted loops from zero, range-over-int reads better
// and cannot get the bound comparison wrong.
func RangeOverInt(m dsl.Matcher) {
	m.Match(
		`for $i := 0; $i < $n; $i++ { $*body }`,
	).
		Where(m["n"].Pure && !m["body"].Contains(`$i`)).
		Report("use for range $n instead of counted loop when the index is unused (Go 1.22+)")
}
