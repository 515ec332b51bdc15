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
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/IceFireDB/IceFireDB-Gateway/utils"
)

const Namespace = "ipfs_gateway"

var BasicLabels = []string{"host"}

/*
	monitor:
		enable: true
		address: "127.0.0.1:19090"
*/

type ExporterConf struct {
	Enable  bool   `mapstructure:"enable"`
	Host    string `mapstructure:"host"`
	Address string `mapstructure:"address"`
}

func (e *ExporterConf) SetDefaultHostname() {
	if e.Host == "" {
		e.Host = utils.GetHostname()
	}
}

var (
	// Responses counts every response the gateway wrote, by status code.
	Responses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "responses_total",
		Help:      "Count of gateway responses by status code",
	}, []string{"code"})

	// LinkFetches counts link-table fetches sent to the daemon.
	LinkFetches = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "link_fetches_total",
		Help:      "Count of link table fetches made while descending",
	})

	SetupAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "daemon_setup_total",
		Help:      "Count of backing daemon setup attempts by result",
	}, []string{"result"})
)

func NewDesc(metricName string, docString string, labels []string) *prometheus.Desc {
	return prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "", metricName),
		docString,
		labels,
		nil)
}

// Collectors returns everything RunPrometheusExporter registers.
func Collectors(c *ExporterConf, cache CacheMetricsFunc) []prometheus.Collector {
	cs := []prometheus.Collector{Responses, LinkFetches, SetupAttempts}
	if cache != nil {
		cs = append(cs, NewCacheExporter(c, cache))
	}
	return cs
}

func RunPrometheusExporter(c *ExporterConf, cache CacheMetricsFunc) error {
	c.SetDefaultHostname()

	reg := prometheus.NewRegistry()
	for _, col := range Collectors(c, cache) {
		if err := reg.Register(col); err != nil {
			return err
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	utils.GoWithRecover(func() {
		err := http.ListenAndServe(c.Address, mux)
		if err != nil {
			logrus.Error("metrics exporter error: ", err)
		}
	}, nil)
	return nil
}
