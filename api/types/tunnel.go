package types

type ErrorRes struct {
	Error string `json:"error"`
}

// IntentReq carries a YAML intent document and the instance to evaluate.
type IntentReq struct {
	Intent    string `json:"intent" example:"interfaces:\n  openvpn:\n    vtun0:\n      mode: client\n"`
	Interface string `json:"interface" example:"vtun0"`
}

type ValidateRes struct {
	Interface string `json:"interface" example:"vtun0"`
	Valid     bool   `json:"valid" example:"false"`
	Deleted   bool   `json:"deleted,omitempty"`
	Rule      string `json:"rule,omitempty" example:"client-remote-host"`
	Message   string `json:"message,omitempty" example:"Must specify \"remote-host\" in client mode"`
}

type RenderRes struct {
	Interface string            `json:"interface" example:"vtun0"`
	Deleted   bool              `json:"deleted,omitempty"`
	Main      string            `json:"main,omitempty"`
	Clients   map[string]string `json:"clients,omitempty"`
}

type InstancesRes struct {
	Instances []string `json:"instances"`
}

type CiphersRes struct {
	Ciphers []string `json:"ciphers"`
}

type LogRes struct {
	Time      string `json:"time" example:"2024-05-01T10:00:00Z"`
	Level     string `json:"level" example:"warn"`
	Message   string `json:"message"`
	Interface string `json:"interface,omitempty" example:"vtun0"`
	Error     string `json:"error,omitempty"`
}

type LogsRes struct {
	Logs []LogRes `json:"logs"`
}
