// Package validation validates configuration structs with
// go-playground/validator tags.
//
//	type Config struct {
//	    Site    string        `mapstructure:"site" validate:"required,http_url"`
//	    Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// Field names in errors follow the mapstructure (config file) keys.
package validation
