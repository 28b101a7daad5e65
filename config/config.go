// Package config reads the storage credentials file.
package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Credentials are the storage access credentials for a run. They are passed
// explicitly to whatever needs them and never exported to the process
// environment.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
}

// LoadCredentials reads an INI file with an [AWS] section holding
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and optionally AWS_REGION.
func LoadCredentials(path string) (Credentials, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return Credentials{}, errors.Wrapf(err, "reading credentials from %s", path)
	}
	creds := Credentials{
		AccessKeyID:     v.GetString("aws.aws_access_key_id"),
		SecretAccessKey: v.GetString("aws.aws_secret_access_key"),
		Region:          v.GetString("aws.aws_region"),
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return Credentials{}, errors.Errorf("%s must set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY in its [AWS] section", path)
	}
	return creds, nil
}
