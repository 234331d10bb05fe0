// Package config loads limiter configuration from YAML files and
// hot-reloads running limiters when the file changes.
//
// # Usage
//
//	cfg, err := config.Load("throttle.yaml")
//	if err != nil {
//	    return err
//	}
//	limiter, err := cfg.Build()
//	if err != nil {
//	    return err
//	}
//
//	watcher := config.NewWatcher("throttle.yaml", 0)
//	go watcher.Watch(ctx, func(next *config.Config) {
//	    if err := next.Apply(limiter); err != nil {
//	        slog.Error("apply reloaded config", "error", err)
//	    }
//	})
package config
