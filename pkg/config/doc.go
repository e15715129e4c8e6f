// Package config provides the runtime configuration of the configspace library.
//
// Configuration is resolved by viper from the following sources:
//
//  1. Command-line flags bound with BindFlags (highest priority)
//  2. Environment variables prefixed with CCS_ (e.g. CCS_MAX_OVERSAMPLING_FACTOR)
//  3. An optional YAML configuration file
//  4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	if err := core.Init(cfg); err != nil {
//	    return err
//	}
//	defer core.Fini()
//
// Configuration Validation:
//
// All values are validated on load:
//   - Oversampling factors are powers of two with initial <= max
//   - Retry budgets are positive
//   - The log level is one of info, debug, trace
package config
