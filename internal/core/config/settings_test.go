package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
)

type settingTestCase struct {
	yamlKey      string
	envVar       string
	envValue     string
	expectedEnv  any
	flagValue    string
	expectedFlag any
	yamlValue    string
	expectedYAML any
}

func getSettingTestCases() []settingTestCase {
	return []settingTestCase{
		{
			yamlKey:      "network_interface",
			envVar:       "WHOSTHERE__NETWORK_INTERFACE",
			envValue:     "eth0",
			expectedEnv:  "eth0",
			flagValue:    "wlan0",
			expectedFlag: "wlan0",
			yamlValue:    "en0",
			expectedYAML: "en0",
		},
		{
			yamlKey:      "scan_timeout",
			envVar:       "WHOSTHERE__SCAN_TIMEOUT",
			envValue:     "15s",
			expectedEnv:  15 * time.Second,
			flagValue:    "20s",
			expectedFlag: 20 * time.Second,
			yamlValue:    "10s",
			expectedYAML: 10 * time.Second,
		},
		{
			yamlKey:      "scan_interval",
			envVar:       "WHOSTHERE__SCAN_INTERVAL",
			envValue:     "45s",
			expectedEnv:  45 * time.Second,
			flagValue:    "60s",
			expectedFlag: 60 * time.Second,
			yamlValue:    "30s",
			expectedYAML: 30 * time.Second,
		},
		{
			yamlKey:      "scanners.mdns.enabled",
			envVar:       "WHOSTHERE__SCANNERS__MDNS__ENABLED",
			envValue:     "false",
			expectedEnv:  false,
			flagValue:    "true",
			expectedFlag: true,
			yamlValue:    "false",
			expectedYAML: false,
		},
		{
			yamlKey:      "scanners.ssdp.enabled",
			envVar:       "WHOSTHERE__SCANNERS__SSDP__ENABLED",
			envValue:     "false",
			expectedEnv:  false,
			flagValue:    "true",
			expectedFlag: true,
			yamlValue:    "false",
			expectedYAML: false,
		},
		{
			yamlKey:      "scanners.arp.enabled",
			envVar:       "WHOSTHERE__SCANNERS__ARP__ENABLED",
			envValue:     "false",
			expectedEnv:  false,
			flagValue:    "true",
			expectedFlag: true,
			yamlValue:    "false",
			expectedYAML: false,
		},
		{
			yamlKey:      "sweeper.enabled",
			envVar:       "WHOSTHERE__SWEEPER__ENABLED",
			envValue:     "false",
			expectedEnv:  false,
			flagValue:    "true",
			expectedFlag: true,
			yamlValue:    "false",
			expectedYAML: false,
		},
		{
			yamlKey:      "sweeper.interval",
			envVar:       "WHOSTHERE__SWEEPER__INTERVAL",
			envValue:     "10m",
			expectedEnv:  10 * time.Minute,
			flagValue:    "15m",
			expectedFlag: 15 * time.Minute,
			yamlValue:    "5m",
			expectedYAML: 5 * time.Minute,
		},
		{
			yamlKey:      "sweeper.timeout",
			envVar:       "WHOSTHERE__SWEEPER__TIMEOUT",
			envValue:     "3s",
			expectedEnv:  3 * time.Second,
			flagValue:    "5s",
			expectedFlag: 5 * time.Second,
			yamlValue:    "2s",
			expectedYAML: 2 * time.Second,
		},
		{
			yamlKey:      "port_scanner.timeout",
			envVar:       "WHOSTHERE__PORT_SCANNER__TIMEOUT",
			envValue:     "8s",
			expectedEnv:  8 * time.Second,
			flagValue:    "",
			expectedFlag: nil,
			yamlValue:    "6s",
			expectedYAML: 6 * time.Second,
		},
		{
			yamlKey:      "port_scanner.tcp",
			envVar:       "WHOSTHERE__PORT_SCANNER__TCP",
			envValue:     "22,80,443",
			expectedEnv:  []int{22, 80, 443},
			flagValue:    "",
			expectedFlag: nil,
			yamlValue:    "[22, 80]",
			expectedYAML: []int{22, 80},
		},
		{
			yamlKey:      "scanners.wsdiscovery.enabled",
			envVar:       "WHOSTHERE__SCANNERS__WSDISCOVERY__ENABLED",
			envValue:     "false",
			expectedEnv:  false,
			flagValue:    "true",
			expectedFlag: true,
			yamlValue:    "false",
			expectedYAML: false,
		},
		{
			yamlKey:      "scanners.icmp.enabled",
			envVar:       "WHOSTHERE__SCANNERS__ICMP__ENABLED",
			envValue:     "true",
			expectedEnv:  true,
			flagValue:    "false",
			expectedFlag: false,
			yamlValue:    "true",
			expectedYAML: true,
		},
		{
			yamlKey:      "scanners.snmp.enabled",
			envVar:       "WHOSTHERE__SCANNERS__SNMP__ENABLED",
			envValue:     "true",
			expectedEnv:  true,
			flagValue:    "false",
			expectedFlag: false,
			yamlValue:    "true",
			expectedYAML: true,
		},
		{
			yamlKey:      "scanners.port_scan.enabled",
			envVar:       "WHOSTHERE__SCANNERS__PORT_SCAN__ENABLED",
			envValue:     "true",
			expectedEnv:  true,
			flagValue:    "false",
			expectedFlag: false,
			yamlValue:    "true",
			expectedYAML: true,
		},
		{
			yamlKey:      "scanners.dhcp_hint.enabled",
			envVar:       "WHOSTHERE__SCANNERS__DHCP_HINT__ENABLED",
			envValue:     "false",
			expectedEnv:  false,
			flagValue:    "true",
			expectedFlag: true,
			yamlValue:    "false",
			expectedYAML: false,
		},
	}
}

func TestSettings_EnvOverride(t *testing.T) {
	for _, tc := range getSettingTestCases() {
		tc := tc
		t.Run(tc.yamlKey+"/env", func(t *testing.T) {
			snap := SnapshotEnv()
			RestoreEnv(map[string]string{})
			t.Cleanup(func() { RestoreEnv(snap) })

			_ = os.Setenv(tc.envVar, tc.envValue)

			cfg := DefaultConfig()
			if err := ApplyEnv(cfg); err != nil {
				t.Fatalf("ApplyEnv: %v", err)
			}

			got := getConfigValue(cfg, tc.yamlKey)
			if !equalValues(got, tc.expectedEnv) {
				t.Errorf("got %v, want %v", got, tc.expectedEnv)
			}
		})
	}
}

func TestSettings_FlagOverride(t *testing.T) {
	settings := settingsByYAMLKey()

	for _, tc := range getSettingTestCases() {
		tc := tc
		setting := settings[tc.yamlKey]
		if setting == nil || !setting.hasSource(SourceFlag) || tc.flagValue == "" {
			continue
		}

		t.Run(tc.yamlKey+"/flag", func(t *testing.T) {
			cfg := DefaultConfig()

			if err := SetByYAMLKey(cfg, tc.yamlKey, tc.flagValue); err != nil {
				t.Fatalf("SetByYAMLKey: %v", err)
			}

			got := getConfigValue(cfg, tc.yamlKey)
			if !equalValues(got, tc.expectedFlag) {
				t.Errorf("got %v, want %v", got, tc.expectedFlag)
			}
		})
	}
}

func TestSettings_YAMLOverride(t *testing.T) {
	for _, tc := range getSettingTestCases() {
		tc := tc
		t.Run(tc.yamlKey+"/yaml", func(t *testing.T) {
			yamlContent := buildYAMLForKey(tc.yamlKey, tc.yamlValue)

			cfg := DefaultConfig()
			if err := unmarshalYAML([]byte(yamlContent), cfg); err != nil {
				t.Fatalf("unmarshalYAML: %v", err)
			}

			got := getConfigValue(cfg, tc.yamlKey)
			if !equalValues(got, tc.expectedYAML) {
				t.Errorf("got %v, want %v", got, tc.expectedYAML)
			}
		})
	}
}

func TestSettings_Precedence_FlagOverEnv(t *testing.T) {
	settings := settingsByYAMLKey()

	for _, tc := range getSettingTestCases() {
		tc := tc
		setting := settings[tc.yamlKey]
		if setting == nil || !setting.hasSource(SourceFlag) || tc.flagValue == "" {
			continue
		}

		t.Run(tc.yamlKey, func(t *testing.T) {
			snap := SnapshotEnv()
			RestoreEnv(map[string]string{})
			t.Cleanup(func() { RestoreEnv(snap) })

			_ = os.Setenv(tc.envVar, tc.envValue)

			cfg := DefaultConfig()

			if err := ApplyEnv(cfg); err != nil {
				t.Fatalf("ApplyEnv: %v", err)
			}

			if err := SetByYAMLKey(cfg, tc.yamlKey, tc.flagValue); err != nil {
				t.Fatalf("SetByYAMLKey: %v", err)
			}

			got := getConfigValue(cfg, tc.yamlKey)
			if !equalValues(got, tc.expectedFlag) {
				t.Errorf("flag should win over env: got %v, want %v", got, tc.expectedFlag)
			}
		})
	}
}

func TestSettings_Precedence_EnvOverYAML(t *testing.T) {
	for _, tc := range getSettingTestCases() {
		tc := tc
		t.Run(tc.yamlKey, func(t *testing.T) {
			snap := SnapshotEnv()
			RestoreEnv(map[string]string{})
			t.Cleanup(func() { RestoreEnv(snap) })

			cfg := DefaultConfig()

			yamlContent := buildYAMLForKey(tc.yamlKey, tc.yamlValue)
			if err := unmarshalYAML([]byte(yamlContent), cfg); err != nil {
				t.Fatalf("unmarshalYAML: %v", err)
			}

			_ = os.Setenv(tc.envVar, tc.envValue)
			if err := ApplyEnv(cfg); err != nil {
				t.Fatalf("ApplyEnv: %v", err)
			}

			got := getConfigValue(cfg, tc.yamlKey)
			if !equalValues(got, tc.expectedEnv) {
				t.Errorf("env should win over yaml: got %v, want %v", got, tc.expectedEnv)
			}
		})
	}
}

func TestSettings_Precedence_FlagOverEnvOverYAML(t *testing.T) {
	settings := settingsByYAMLKey()

	for _, tc := range getSettingTestCases() {
		tc := tc
		setting := settings[tc.yamlKey]
		if setting == nil || !setting.hasSource(SourceFlag) || tc.flagValue == "" {
			continue
		}

		t.Run(tc.yamlKey, func(t *testing.T) {
			snap := SnapshotEnv()
			RestoreEnv(map[string]string{})
			t.Cleanup(func() { RestoreEnv(snap) })

			cfg := DefaultConfig()

			yamlContent := buildYAMLForKey(tc.yamlKey, tc.yamlValue)
			if err := unmarshalYAML([]byte(yamlContent), cfg); err != nil {
				t.Fatalf("unmarshalYAML: %v", err)
			}

			_ = os.Setenv(tc.envVar, tc.envValue)
			if err := ApplyEnv(cfg); err != nil {
				t.Fatalf("ApplyEnv: %v", err)
			}

			if err := SetByYAMLKey(cfg, tc.yamlKey, tc.flagValue); err != nil {
				t.Fatalf("SetByYAMLKey: %v", err)
			}

			got := getConfigValue(cfg, tc.yamlKey)
			if !equalValues(got, tc.expectedFlag) {
				t.Errorf("flag should win over env and yaml: got %v, want %v", got, tc.expectedFlag)
			}
		})
	}
}

func TestFullYAMLConfig_LoadFromFile(t *testing.T) {
	snap := SnapshotEnv()
	RestoreEnv(map[string]string{})
	t.Cleanup(func() { RestoreEnv(snap) })

	// Note: network_interface is excluded from this test because:
	// 1. It requires a valid interface name which varies by system (lo/lo0/Loopback Pseudo-Interface 1)
	// 2. It's already tested in individual setting tests (env/flag/yaml)
	// 3. This test focuses on the full loading path, not individual field validation
	fullYAML := `
scan_timeout: 12s
scan_interval: 45s

scanners:
  mdns:
    enabled: false
  ssdp:
    enabled: false
  arp:
    enabled: true
  wsdiscovery:
    enabled: false
  icmp:
    enabled: true
  snmp:
    enabled: true
  port_scan:
    enabled: true
  dhcp_hint:
    enabled: false

sweeper:
  enabled: false
  interval: 8m
  timeout: 4s

port_scanner:
  timeout: 7s
  tcp: [22, 80, 443, 8080]
`

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(fullYAML), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := LoadForMode(ModeApp, &Flags{ConfigFile: configPath})
	if err != nil {
		t.Fatalf("LoadForMode: %v", err)
	}

	assertions := []struct {
		yamlKey  string
		got      any
		expected any
	}{
		{"scan_timeout", cfg.ScanTimeout, 12 * time.Second},
		{"scan_interval", cfg.ScanInterval, 45 * time.Second},
		{"scanners.mdns.enabled", cfg.Scanners.MDNS.Enabled, false},
		{"scanners.ssdp.enabled", cfg.Scanners.SSDP.Enabled, false},
		{"scanners.arp.enabled", cfg.Scanners.ARP.Enabled, true},
		{"scanners.wsdiscovery.enabled", cfg.Scanners.WSDiscovery.Enabled, false},
		{"scanners.icmp.enabled", cfg.Scanners.ICMP.Enabled, true},
		{"scanners.snmp.enabled", cfg.Scanners.SNMP.Enabled, true},
		{"scanners.port_scan.enabled", cfg.Scanners.PortScan.Enabled, true},
		{"scanners.dhcp_hint.enabled", cfg.Scanners.DHCPHint.Enabled, false},
		{"sweeper.enabled", cfg.Sweeper.Enabled, false},
		{"sweeper.interval", cfg.Sweeper.Interval, 8 * time.Minute},
		{"sweeper.timeout", cfg.Sweeper.Timeout, 4 * time.Second},
		{"port_scanner.timeout", cfg.PortScanner.Timeout, 7 * time.Second},
		{"port_scanner.tcp", cfg.PortScanner.TCP, []int{22, 80, 443, 8080}},
	}

	testedKeys := make(map[string]bool)
	// network_interface is tested in individual setting tests but excluded from full YAML test
	// due to system-dependent interface names (lo/lo0/Loopback Pseudo-Interface 1)
	testedKeys["network_interface"] = true
	for _, a := range assertions {
		testedKeys[a.yamlKey] = true
		if !equalValues(a.got, a.expected) {
			t.Errorf("%s: got %v, want %v", a.yamlKey, a.got, a.expected)
		}
	}

	for _, s := range GlobalSettings() {
		if s.YAMLKey == "" {
			continue
		}
		if !testedKeys[s.YAMLKey] {
			t.Errorf("setting %q is not covered in TestFullYAMLConfig_LoadFromFile", s.YAMLKey)
		}
	}
}

func TestMeta_AllSettingsHaveTestCases(t *testing.T) {
	testedKeys := make(map[string]bool)
	for _, tc := range getSettingTestCases() {
		testedKeys[tc.yamlKey] = true
	}

	for _, s := range GlobalSettings() {
		if s.YAMLKey == "" {
			continue
		}

		if !testedKeys[s.YAMLKey] {
			t.Errorf("setting %q has no test case in getSettingTestCases()", s.YAMLKey)
		}
	}
}

func TestMeta_AllSettingsHaveSetterAndGetter(t *testing.T) {
	for _, s := range GlobalSettings() {
		if s.YAMLKey == "" {
			continue
		}

		if s.Set == nil {
			t.Errorf("setting %q is missing Setter", s.YAMLKey)
		}
		if s.Get == nil {
			t.Errorf("setting %q is missing Getter", s.YAMLKey)
		}
	}
}

func getConfigValue(cfg *Config, yamlKey string) any {
	settings := settingsByYAMLKey()
	s := settings[yamlKey]
	if s == nil || s.Get == nil {
		return nil
	}
	return s.Get(cfg)
}

func buildYAMLForKey(yamlKey, value string) string {
	parts := strings.Split(yamlKey, ".")
	indent := ""
	var lines []string

	for i, part := range parts {
		if i == len(parts)-1 {
			switch {
			case strings.HasPrefix(value, "[") || strings.HasPrefix(value, "{"):
				lines = append(lines, indent+part+": "+value)
			case strings.HasPrefix(value, "#") || strings.Contains(value, " "):
				lines = append(lines, indent+part+": \""+value+"\"")
			default:
				lines = append(lines, indent+part+": "+value)
			}
		} else {
			lines = append(lines, indent+part+":")
			indent += "  "
		}
	}

	return strings.Join(lines, "\n")
}

func equalValues(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	aSlice, aIsSlice := a.([]int)
	bSlice, bIsSlice := b.([]int)
	if aIsSlice && bIsSlice {
		if len(aSlice) != len(bSlice) {
			return false
		}
		for i := range aSlice {
			if aSlice[i] != bSlice[i] {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(a, b)
}

func unmarshalYAML(data []byte, cfg *Config) error {
	return yaml.Unmarshal(data, cfg)
}
