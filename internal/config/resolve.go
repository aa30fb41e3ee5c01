package config

import (
	"fmt"

	"hookbox/internal/webhook"
)

// Configuration keys.
const (
	KeyName                = "name"
	KeySigningSecret       = "signing_secret"
	KeySignatureHeaderName = "signature_header_name"
	KeySignatureValidator  = "signature_validator"
	KeyWebhookProfile      = "webhook_profile"
	KeyWebhookResponse     = "webhook_response"
	KeyWebhookModel        = "webhook_model"
	KeyProcessWebhookJob   = "process_webhook_job"
	KeyStoreHeaders        = "store_headers"
	KeyProfileOptions      = "profile_options"
	KeyJobOptions          = "job_options"
)

// Resolve builds a Config from a raw mapping, checking keys in a fixed order
// and failing with an *webhook.InvalidConfigError for the first invalid one.
// Only webhook_response may be absent or null; it then resolves to the
// built-in 200 responder.
func Resolve(raw map[string]any, reg *Registry) (*webhook.Config, error) {
	name, reason := stringKey(raw, KeyName)
	if reason != "" {
		return nil, &webhook.InvalidConfigError{Key: KeyName, Reason: reason}
	}

	invalid := func(key, reason, detail string) error {
		return &webhook.InvalidConfigError{Config: name, Key: key, Reason: reason, Detail: detail}
	}

	cfg := &webhook.Config{Name: name}

	for _, key := range []string{KeySigningSecret, KeySignatureHeaderName} {
		value, reason := stringKey(raw, key)
		if reason != "" {
			return nil, invalid(key, reason, "")
		}
		if key == KeySigningSecret {
			cfg.SigningSecret = value
		} else {
			cfg.SignatureHeaderName = value
		}
	}

	storeHeaders, err := Options(raw).Strings(KeyStoreHeaders)
	if err != nil {
		return nil, invalid(KeyStoreHeaders, webhook.ReasonInvalidOptions, err.Error())
	}
	cfg.StoreHeaders = storeHeaders

	profileOpts, err := optionsKey(raw, KeyProfileOptions)
	if err != nil {
		return nil, invalid(KeyProfileOptions, webhook.ReasonInvalidOptions, err.Error())
	}
	jobOpts, err := optionsKey(raw, KeyJobOptions)
	if err != nil {
		return nil, invalid(KeyJobOptions, webhook.ReasonInvalidOptions, err.Error())
	}

	if cfg.SignatureValidator, cfg.ValidatorName, err = resolveKey(name, raw, KeySignatureValidator, reg, CapabilityValidator, reg.validator, nil); err != nil {
		return nil, err
	}
	if cfg.Profile, cfg.ProfileName, err = resolveKey(name, raw, KeyWebhookProfile, reg, CapabilityProfile, reg.profile, profileOpts); err != nil {
		return nil, err
	}
	if v, ok := raw[KeyWebhookResponse]; !ok || v == nil {
		cfg.Response, cfg.ResponseName = webhook.OKResponder{}, DefaultName
	} else if cfg.Response, cfg.ResponseName, err = resolveKey(name, raw, KeyWebhookResponse, reg, CapabilityResponse, reg.response, nil); err != nil {
		return nil, err
	}
	if cfg.RecordFactory, cfg.ModelName, err = resolveKey(name, raw, KeyWebhookModel, reg, CapabilityModel, reg.model, nil); err != nil {
		return nil, err
	}
	// jobs get the signing secret under its config key so they can mask it
	jobOpts = jobOpts.With(KeySigningSecret, cfg.SigningSecret)
	if cfg.Job, cfg.JobName, err = resolveKey(name, raw, KeyProcessWebhookJob, reg, CapabilityJob, reg.job, jobOpts); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolveKey looks up the implementation named by raw[key] in the namespace
// of want and builds it with opts.
func resolveKey[T any](cfgName string, raw map[string]any, key string, reg *Registry, want Capability,
	lookup func(string) (func(Options) (T, error), bool), opts Options) (T, string, error) {
	var zero T

	implName, reason := stringKey(raw, key)
	if reason != "" {
		return zero, "", &webhook.InvalidConfigError{Config: cfgName, Key: key, Reason: reason}
	}

	factory, ok := lookup(implName)
	if !ok {
		if got, found := reg.capabilityOf(implName); found {
			return zero, "", &webhook.InvalidConfigError{
				Config: cfgName,
				Key:    key,
				Reason: webhook.ReasonWrongCapability,
				Detail: fmt.Sprintf("%q names a %s, not a %s", implName, got, want),
			}
		}
		return zero, "", &webhook.InvalidConfigError{
			Config: cfgName,
			Key:    key,
			Reason: webhook.ReasonNotFound,
			Detail: fmt.Sprintf("%q is not a registered %s", implName, want),
		}
	}

	if opts == nil {
		opts = Options{}
	}
	impl, err := factory(opts)
	if err == nil && any(impl) == nil {
		err = fmt.Errorf("factory returned no %s", want)
	}
	if err != nil {
		return zero, "", &webhook.InvalidConfigError{
			Config: cfgName,
			Key:    key,
			Reason: webhook.ReasonInvalidOptions,
			Detail: err.Error(),
		}
	}

	return impl, implName, nil
}

// stringKey returns raw[key] or the reason it is unusable. Empty strings
// count as missing.
func stringKey(raw map[string]any, key string) (string, string) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", webhook.ReasonMissing
	}
	s, ok := v.(string)
	if !ok {
		return "", webhook.ReasonNotAString
	}
	if s == "" {
		return "", webhook.ReasonMissing
	}
	return s, ""
}

func optionsKey(raw map[string]any, key string) (Options, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return Options{}, nil
	}
	switch m := v.(type) {
	case map[string]any:
		return Options(m), nil
	case Options:
		return m, nil
	default:
		return nil, fmt.Errorf("must be a mapping, got %T", v)
	}
}
