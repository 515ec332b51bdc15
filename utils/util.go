package utils

import (
	"net"
	"os"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
)

func GoWithRecover(handler func(), recoverHandler func(r any)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logrus.Errorf("%s goroutine panic: %v\n%s\n", time.Now().Format(time.DateTime), r, string(debug.Stack()))
				if recoverHandler != nil {
					go func() {
						defer func() {
							if p := recover(); p != nil {
								logrus.Errorf("recover goroutine panic:%v\n%s\n", p, string(debug.Stack()))
							}
						}()
						recoverHandler(r)
					}()
				}
			}
		}()
		handler()
	}()
}

func IsFileExist(path string) bool {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

var _hostname string

func GetHostname() string {
	if _hostname != "" {
		return _hostname
	}

	hostname, err := os.Hostname()
	if err != nil {
		return ""
	}
	_hostname = hostname
	return _hostname
}

// IsLoopback reports whether host names or is a loopback address.
func IsLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
