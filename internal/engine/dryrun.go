package engine

import "github.com/voundbrand/vc83-com-sub014/pkg/schema"

// withDryRun returns a copy of config carrying the dry-run flag. The original
// config is never mutated, so gates always see what the tenant authored.
func withDryRun(config map[string]any) map[string]any {
	out := make(map[string]any, len(config)+1)
	for k, v := range config {
		out[k] = cloneValue(v)
	}
	out[schema.ConfigKeyDryRun] = true
	return out
}

// invocationConfig is the config a behavior receives for this run. The run
// mode alone decides the flag; an authored dryRun key is dropped.
func invocationConfig(config map[string]any, dryRun bool) map[string]any {
	if dryRun {
		return withDryRun(config)
	}
	out := make(map[string]any, len(config))
	for k, v := range config {
		if k == schema.ConfigKeyDryRun {
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}
