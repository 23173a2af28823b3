package spec

import (
	"context"
	"fmt"
	"slices"

	"github.com/dagu-org/testseries/internal/cmn/logger"
	"github.com/dagu-org/testseries/internal/cmn/logger/tag"
	"github.com/dagu-org/testseries/internal/core"
)

// Prepare turns every entry of the series into a test definition. Modes
// are the series-wide list followed by the entry's own. Each resolved
// configuration gets its predicates unioned with the entry's.
func Prepare(ctx context.Context, s *Series, resolver core.ConfigResolver) ([]core.TestDefinition, error) {
	defs := make([]core.TestDefinition, 0, len(s.Tests))
	seen := make(map[string]bool, len(s.Tests))

	for _, t := range s.Tests {
		if seen[t.Name] {
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateTest, t.Name)
		}
		seen[t.Name] = true

		modes := append(slices.Clone(s.Modes), t.Modes...)
		configs, err := resolver.Resolve(ctx, t.Name, modes)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve test %s: %w", t.Name, err)
		}
		for i := range configs {
			configs[i].OnlyIf = core.MergeConditions(configs[i].OnlyIf, t.OnlyIf)
			configs[i].NotIf = core.MergeConditions(configs[i].NotIf, t.NotIf)
		}

		defs = append(defs, core.TestDefinition{
			Name:        t.Name,
			DependsOn:   slices.Clone(t.DependsOn),
			Modes:       modes,
			OnlyIf:      t.OnlyIf.Clone(),
			NotIf:       t.NotIf.Clone(),
			DependsPass: t.DependsPass,
			Configs:     configs,
		})

		logger.Debug(ctx, "Prepared test",
			tag.Test(t.Name),
			tag.Modes(modes),
			tag.Count(len(configs)),
		)
	}
	return defs, nil
}
