package model

type SystemInfo struct {
	Model      string  `json:"model"`
	Hostname   string  `json:"hostname"`
	Firmware   string  `json:"firmware"`
	MACAddress string  `json:"mac_address"`
	Dialect    Dialect `json:"dialect"`
}

// SystemConfig holds requested system settings, nil fields are left unchanged.
// NTPServers replaces up to three server slots, a nil slice leaves them alone.
type SystemConfig struct {
	Hostname   *string  `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Location   *string  `json:"location,omitempty" yaml:"location,omitempty"`
	Contact    *string  `json:"contact,omitempty" yaml:"contact,omitempty"`
	NTPServers []string `json:"ntp_servers,omitempty" yaml:"ntp_servers,omitempty"`
	Timezone   *string  `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

type SyslogServer struct {
	Address string `json:"address" yaml:"address"`
	Port    int    `json:"port,omitempty" yaml:"port,omitempty"`
}

type SyslogConfig struct {
	Enabled *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Servers []SyslogServer `json:"servers,omitempty" yaml:"servers,omitempty"`
}

// Result is the outcome of a write operation.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"msg"`
}

func Succeeded(message string) Result {
	return Result{Success: true, Message: message}
}

func Failed(message string) Result {
	return Result{Success: false, Message: message}
}

// ResultFromError folds a fatal error into a failed result, leaving r untouched when err is nil.
func ResultFromError(r Result, err error) Result {
	if err != nil {
		return Failed(err.Error())
	}
	return r
}
