package azure

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

type credentialsFile struct {
	TenantID     string `json:"tenantId"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// NewCredential resolves the token credential. A credentials file wins over
// inline secrets, which win over the default Azure credential chain.
func NewCredential(cfg Config) (azcore.TokenCredential, error) {
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		var f credentialsFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse credentials file %s: %w", cfg.CredentialsFile, err)
		}
		if f.TenantID == "" || f.ClientID == "" || f.ClientSecret == "" {
			return nil, fmt.Errorf("credentials file %s: tenantId, clientId and clientSecret are required", cfg.CredentialsFile)
		}
		cfg.TenantID, cfg.ClientID, cfg.ClientSecret = f.TenantID, f.ClientID, f.ClientSecret
	}
	if cfg.ClientSecret != "" {
		cred, err := azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("client secret credential: %w", err)
		}
		return cred, nil
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("default azure credential: %w", err)
	}
	return cred, nil
}
