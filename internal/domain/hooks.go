package domain

// HookConfig defines scripts for a single run mode (install or uninstall)
type HookConfig struct {
	BeforeAll  string `yaml:"before_all,omitempty"`
	BeforeEach string `yaml:"before_each,omitempty"`
	AfterEach  string `yaml:"after_each,omitempty"`
	AfterAll   string `yaml:"after_all,omitempty"`
}

// IsEmpty returns true if no hooks are configured
func (h HookConfig) IsEmpty() bool {
	return h.BeforeAll == "" && h.BeforeEach == "" && h.AfterEach == "" && h.AfterAll == ""
}

// RunHooks contains the hooks of both run modes
type RunHooks struct {
	Install   HookConfig `yaml:"install,omitempty"`
	Uninstall HookConfig `yaml:"uninstall,omitempty"`
}

// IsEmpty returns true if no hooks are configured
func (h RunHooks) IsEmpty() bool {
	return h.Install.IsEmpty() && h.Uninstall.IsEmpty()
}

// For returns the hooks of the install or uninstall mode
func (h RunHooks) For(uninstall bool) HookConfig {
	if uninstall {
		return h.Uninstall
	}
	return h.Install
}
