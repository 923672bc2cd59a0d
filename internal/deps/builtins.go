package deps

import "strings"

// nodeBuiltins are Node.js core modules importable without the "node:" prefix.
var nodeBuiltins = map[string]struct{}{
	"assert": {}, "async_hooks": {}, "buffer": {}, "child_process": {},
	"cluster": {}, "console": {}, "constants": {}, "crypto": {},
	"dgram": {}, "diagnostics_channel": {}, "dns": {}, "domain": {},
	"events": {}, "fs": {}, "http": {}, "http2": {}, "https": {},
	"inspector": {}, "module": {}, "net": {}, "os": {}, "path": {},
	"perf_hooks": {}, "process": {}, "punycode": {}, "querystring": {},
	"readline": {}, "repl": {}, "stream": {}, "string_decoder": {},
	"sys": {}, "timers": {}, "tls": {}, "trace_events": {}, "tty": {},
	"url": {}, "util": {}, "v8": {}, "vm": {}, "wasi": {},
	"worker_threads": {}, "zlib": {},
}

// IsCoreModule reports whether spec names a Node.js core module, with or
// without the "node:" scheme, including subpaths such as "fs/promises".
func IsCoreModule(spec string) bool {
	if strings.HasPrefix(spec, "node:") {
		return true
	}
	head, _, _ := strings.Cut(spec, "/")
	_, ok := nodeBuiltins[head]
	return ok
}
