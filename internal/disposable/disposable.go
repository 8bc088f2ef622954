// Package disposable knows which domains belong to throwaway inbox services.
package disposable

import (
	_ "embed"
	"strings"
	"sync"
)

//go:embed list.txt
var rawList string

var (
	once    sync.Once
	domains map[string]struct{}
)

// IsDisposable reports whether domain is a known disposable-mail domain.
// The comparison is case-insensitive.
func IsDisposable(domain string) bool {
	once.Do(load)
	_, ok := domains[strings.ToLower(domain)]
	return ok
}

func load() {
	domains = make(map[string]struct{})
	for _, line := range strings.Split(rawList, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		domains[strings.ToLower(line)] = struct{}{}
	}
}
