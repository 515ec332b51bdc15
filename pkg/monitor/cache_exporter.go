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

package monitor

import (
	"github.com/dgraph-io/ristretto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// CacheMetricsFunc returns the metrics of the live content cache, or nil
// when there is none.
type CacheMetricsFunc func() *ristretto.Metrics

var cacheDescs = map[string]*prometheus.Desc{
	"hits":          NewDesc("cache_hits_total", "Count of content cache hits", BasicLabels),
	"misses":        NewDesc("cache_misses_total", "Count of content cache misses", BasicLabels),
	"used_cost":     NewDesc("cache_used_bytes", "Bytes currently held by the content cache", BasicLabels),
	"keys_added":    NewDesc("cache_keys_added_total", "Count of keys added to the content cache", BasicLabels),
	"keys_evicted":  NewDesc("cache_keys_evicted_total", "Count of keys evicted from the content cache", BasicLabels),
	"sets_rejected": NewDesc("cache_sets_rejected_total", "Count of cache sets rejected by the admission policy", BasicLabels),
}

type CacheExporter struct {
	basicConf *ExporterConf
	source    CacheMetricsFunc
}

func NewCacheExporter(c *ExporterConf, source CacheMetricsFunc) *CacheExporter {
	return &CacheExporter{basicConf: c, source: source}
}

func (e *CacheExporter) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range cacheDescs {
		ch <- d
	}
}

func (e *CacheExporter) Collect(ch chan<- prometheus.Metric) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Error("cache prometheus collect panic ", r)
		}
	}()
	m := e.source()
	if m == nil {
		return
	}

	counter := func(name string, v uint64) {
		ch <- prometheus.MustNewConstMetric(cacheDescs[name], prometheus.CounterValue, float64(v), e.basicConf.Host)
	}
	counter("hits", m.Hits())
	counter("misses", m.Misses())
	counter("keys_added", m.KeysAdded())
	counter("keys_evicted", m.KeysEvicted())
	counter("sets_rejected", m.SetsRejected())
	ch <- prometheus.MustNewConstMetric(cacheDescs["used_cost"], prometheus.GaugeValue,
		float64(m.CostAdded()-m.CostEvicted()), e.basicConf.Host)
}
