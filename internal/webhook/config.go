package webhook

// Config is a resolved webhook configuration. Every capability field holds a
// concrete implementation; a Config is never modified after resolution and is
// shared by concurrent requests.
type Config struct {
	Name                string
	SigningSecret       string
	SignatureHeaderName string
	StoreHeaders        []string

	SignatureValidator SignatureValidator
	Profile            Profile
	Response           Responder
	RecordFactory      RecordFactory
	Job                Job

	// Registry names the capabilities were resolved from, for display.
	ValidatorName string
	ProfileName   string
	ResponseName  string
	ModelName     string
	JobName       string
}
