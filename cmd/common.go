/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/valpere/reflow/internal/transformer"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// buildService constructs the transformation service from CLI parameters.
func buildService(name, model, baseURL, apiKey string) (transformer.Service, error) {
	switch name {
	case "ollama":
		return transformer.NewOllamaService(model, baseURL), nil
	case "openai":
		return transformer.NewOpenAIService(apiKey, model, baseURL), nil
	case "openrouter":
		if baseURL == "" {
			baseURL = openRouterBaseURL
		}
		return transformer.NewOpenAIService(apiKey, model, baseURL), nil
	default:
		return nil, fmt.Errorf("unknown service: %s", name)
	}
}

// resolveAPIKey resolves the credential in priority order: flag value,
// then REFLOW_API_KEY, then the api_key entry of the config file.
func resolveAPIKey(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return viper.GetString("api_key")
}
