package internal

// StickerdConfiguration represents the configuration file.
type StickerdConfiguration struct {
	Packs struct {
		// BundledDirectory holds the read-only pack set and its
		// contents.json document. Empty disables the bundled source.
		BundledDirectory string `json:"bundled_directory" yaml:"bundled_directory"`

		// GeneratedPrefixes are the directory name prefixes recognized as
		// dynamically generated packs.
		GeneratedPrefixes []string `json:"generated_prefixes" yaml:"generated_prefixes"`
	} `json:"packs" yaml:"packs"`

	Host struct {
		// SourceIdentity identifies this store to the host, included in
		// outbound notifications and whitelist queries.
		SourceIdentity string `json:"source_identity" yaml:"source_identity"`

		// WhitelistEndpoints are base URLs of host processes answering
		// is_whitelisted queries.
		WhitelistEndpoints []string `json:"whitelist_endpoints" yaml:"whitelist_endpoints"`
	} `json:"host" yaml:"host"`

	Producer struct {
		Enabled       bool                   `json:"enabled" yaml:"enabled"`
		Type          string                 `json:"type" yaml:"type"`
		ClientName    string                 `json:"client_name" yaml:"client_name"`
		ChannelName   string                 `json:"channel_name" yaml:"channel_name"`
		Configuration map[string]interface{} `json:"configuration" yaml:"configuration"`
	} `json:"producer" yaml:"producer"`
}

// StickerdOptions represents any options passable when creating the
// stickerd service.
type StickerdOptions struct {
	ConfigurationLocation string `json:"configuration_location" yaml:"configuration_location"`
	DataDirectory         string `json:"data_directory" yaml:"data_directory"`
	PrometheusAddress     string `json:"prometheus_address" yaml:"prometheus_address"`

	HTTPHost    string `json:"http_host" yaml:"http_host"`
	HTTPEnabled bool   `json:"http_enabled" yaml:"http_enabled"`
}

var defaultGeneratedPrefixes = []string{"custom_", "colorstickers_"}
