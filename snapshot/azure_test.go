package snapshot

import "testing"

func TestAzureConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  AzureConfig
		wantErr bool
	}{
		{
			name: "valid config",
			config: AzureConfig{
				Container:        "test-container",
				ConnectionString: "DefaultEndpointsProtocol=https;AccountName=test;AccountKey=key;EndpointSuffix=core.windows.net",
			},
			wantErr: false,
		},
		{
			name: "missing container",
			config: AzureConfig{
				ConnectionString: "DefaultEndpointsProtocol=https;AccountName=test;AccountKey=key;EndpointSuffix=core.windows.net",
			},
			wantErr: true,
		},
		{
			name: "missing connection string",
			config: AzureConfig{
				Container: "test-container",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseAzureConnectionString(t *testing.T) {
	name, key, err := parseAzureConnectionString(
		"DefaultEndpointsProtocol=https;AccountName=test;AccountKey=secret;EndpointSuffix=core.windows.net")
	if err != nil {
		t.Fatalf("parseAzureConnectionString: %v", err)
	}
	if name != "test" || key != "secret" {
		t.Errorf("got name=%q key=%q, want name=test key=secret", name, key)
	}

	if _, _, err := parseAzureConnectionString("AccountName=test"); err == nil {
		t.Error("expected error for connection string without AccountKey")
	}
	if _, _, err := parseAzureConnectionString(""); err == nil {
		t.Error("expected error for empty connection string")
	}
}
