package launcher

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dagu-org/testseries/internal/cmn/logger"
	"github.com/dagu-org/testseries/internal/cmn/logger/tag"
	"github.com/dagu-org/testseries/internal/core"
	"github.com/dagu-org/testseries/internal/persis/fileseries"
	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v4/host"
)

// HostFacts returns the values conditions can refer to besides the test's
// own variables.
func HostFacts(ctx context.Context) map[string]string {
	facts := map[string]string{
		"sys_os":   runtime.GOOS,
		"sys_arch": runtime.GOARCH,
		"user":     fileseries.Login(),
	}

	info, err := host.InfoWithContext(ctx)
	if err != nil {
		logger.Warn(ctx, "Failed to read host info", tag.Error(err))
		facts["sys_name"], _ = os.Hostname()
		return facts
	}
	facts["sys_name"] = info.Hostname
	facts["sys_platform"] = info.Platform
	facts["sys_platform_version"] = info.PlatformVersion
	facts["sys_kernel"] = info.KernelVersion
	return facts
}

// evalConditions reports whether cfg should run on this host. Every only_if
// key must match one of its values and no not_if key may match any of its
// values. Values are glob patterns. A variable of the same name takes
// precedence over a host fact.
func evalConditions(cfg core.TestConfig, facts map[string]string) (bool, string) {
	lookup := func(key string) string {
		if v, ok := cfg.Variables[key]; ok {
			return v
		}
		return facts[key]
	}

	for _, key := range sortedKeys(cfg.OnlyIf) {
		value := lookup(key)
		if !matchAny(value, cfg.OnlyIf[key]) {
			return false, fmt.Sprintf("Skipping. only_if %s=%q does not match %v.", key, value, cfg.OnlyIf[key])
		}
	}
	for _, key := range sortedKeys(cfg.NotIf) {
		value := lookup(key)
		if matchAny(value, cfg.NotIf[key]) {
			return false, fmt.Sprintf("Skipping. not_if %s=%q matches %v.", key, value, cfg.NotIf[key])
		}
	}
	return true, ""
}

func matchAny(value string, patterns []string) bool {
	return lo.SomeBy(patterns, func(p string) bool {
		if p == value {
			return true
		}
		ok, err := doublestar.Match(p, value)
		return err == nil && ok
	})
}

func sortedKeys(c core.Conditions) []string {
	keys := lo.Keys(c)
	slices.Sort(keys)
	return keys
}
