package config

import (
	"errors"
	"openpka/domain/workflow"

	"github.com/spf13/viper"
)

type definitionsFile struct {
	Definitions []workflow.DefinitionCreation `mapstructure:"definitions"`
}

// LoadDefinitions reads workflow definitions to seed from a yaml or json file:
//
//	definitions:
//	  - entityType: COURSE
//	    name: course review
//	    steps:
//	      - {stepOrder: 1, stepName: Advisor review, approverRole: ADVISOR, timeoutDays: 3}
func LoadDefinitions(file string) ([]workflow.DefinitionCreation, error) {
	v := viper.New()
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	f := definitionsFile{}
	if err := v.Unmarshal(&f); err != nil {
		return nil, err
	}
	if len(f.Definitions) == 0 {
		return nil, errors.New("no definition found in " + file)
	}
	return f.Definitions, nil
}
