/*
 *
 *  * Licensed to the Apache Software Foundation (ASF) under one or more
 *  * contributor license agreements.  See the NOTICE file distributed with
 *  * this work for additional information regarding copyright ownership.
 *  * The ASF licenses this file to You under the Apache License, Version 2.0
 *  * (the "License"); you may not use this file except in compliance with
 *  * the License.  You may obtain a copy of the License at
 *  *
 *  *     http://www.apache.org/licenses/LICENSE-2.0
 *  *
 *  * Unless required by applicable law or agreed to in writing, software
 *  * distributed under the License is distributed on an "AS IS" BASIS,
 *  * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  * See the License for the specific language governing permissions and
 *  * limitations under the License.
 *
 */

package config

import (
	"errors"
	"net"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/IceFireDB/IceFireDB-Gateway/pkg/ipfs"
	"github.com/IceFireDB/IceFireDB-Gateway/utils"
)

var (
	ErrConfigNotInit       = errors.New("config not init")
	ErrDuplicateInitConfig = errors.New("duplicate init config")
)

const EnvPrefix = "GATEWAY"

// Global configuration, read-only once InitConfig returns.
var _config *Config

func SetDefaults() {
	viper.SetDefault("gateway.host", "127.0.0.1")
	viper.SetDefault("gateway.port", 0)
	viper.SetDefault("ipfs.endpoint", "")
	viper.SetDefault("ipfs.repo_path", "")
	viper.SetDefault("ipfs.setup_retries", ipfs.DefaultConfig.SetupRetries)
	viper.SetDefault("dns.resolvers", []ResolverS{})
	viper.SetDefault("cache.enable", true)
	viper.SetDefault("cache.max_cost_mb", ipfs.DefaultConfig.HotCacheSize)
	viper.SetDefault("log.level", "")
	viper.SetDefault("monitor.enable", false)
	viper.SetDefault("monitor.host", "")
	viper.SetDefault("monitor.address", "127.0.0.1:19090")
	viper.SetDefault("pprof_debug.enable", false)
	viper.SetDefault("pprof_debug.port", 16060)
}

// Load reads an optional .env file and the config file at path, then maps
// everything into the global configuration. A missing config file leaves
// the defaults in place. Environment variables prefixed GATEWAY_ override
// both, e.g. GATEWAY_GATEWAY_PORT.
func Load(path string) error {
	if err := godotenv.Load(); err != nil && utils.IsFileExist(".env") {
		return err
	}

	SetDefaults()
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if path != "" && utils.IsFileExist(path) {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return err
		}
	} else {
		logrus.Warnf("config file %q not found, using defaults", path)
	}

	return InitConfig()
}

func InitConfig() error {
	if _config != nil {
		return ErrDuplicateInitConfig
	}

	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return err
	}

	if net.ParseIP(c.Gateway.Host) == nil && c.Gateway.Host != "localhost" {
		c.Gateway.Host = "127.0.0.1"
	}
	if c.Gateway.Port < 0 || c.Gateway.Port > 65535 {
		c.Gateway.Port = 0
	}
	_config = &c
	return nil
}

func Get() *Config {
	return _config
}
