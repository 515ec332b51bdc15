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
	"github.com/IceFireDB/IceFireDB-Gateway/pkg/ipfs"
	"github.com/IceFireDB/IceFireDB-Gateway/pkg/monitor"
)

type Config struct {
	Gateway    GatewayS             `mapstructure:"gateway"`
	IPFS       ipfs.Config          `mapstructure:"ipfs"`
	DNS        DNSS                 `mapstructure:"dns"`
	Cache      CacheS               `mapstructure:"cache"`
	Log        LogS                 `mapstructure:"log"`
	Monitor    monitor.ExporterConf `mapstructure:"monitor"`
	PprofDebug PprofDebugS          `mapstructure:"pprof_debug"`
}

type GatewayS struct {
	Host string `mapstructure:"host"` // loopback unless you know better
	Port int    `mapstructure:"port"` // 0 picks a free port
}

type DNSS struct {
	Resolvers []ResolverS `mapstructure:"resolvers"`
}

// ResolverS sends DNSLink lookups under Domain to a DoH endpoint. Domain "."
// replaces the system resolver.
type ResolverS struct {
	Domain string `mapstructure:"domain"`
	URL    string `mapstructure:"url"`
}

type CacheS struct {
	Enable bool `mapstructure:"enable"`
	// cache size (unit: MB)
	MaxCostMB int64 `mapstructure:"max_cost_mb"`
}

type LogS struct {
	Level string `mapstructure:"level"`
}

type PprofDebugS struct {
	Enable bool   `mapstructure:"enable"`
	Port   uint16 `mapstructure:"port"`
}

// ResolverMap returns the resolvers keyed by domain.
func (d DNSS) ResolverMap() map[string]string {
	m := make(map[string]string, len(d.Resolvers))
	for _, r := range d.Resolvers {
		m[r.Domain] = r.URL
	}
	return m
}

// IPFSConfig merges the cache section into the daemon settings.
func (c *Config) IPFSConfig() ipfs.Config {
	conf := c.IPFS
	conf.HotCacheSize = 0
	if c.Cache.Enable {
		conf.HotCacheSize = c.Cache.MaxCostMB
	}
	return conf
}
