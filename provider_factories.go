package cloudlib

import (
	"github.com/goliatone/go-cloudlib/core"
	"github.com/goliatone/go-cloudlib/remote"
)

// NewRemoteRegistry builds the HTTP-backed registry for a CloudLib instance.
func NewRemoteRegistry(cfg remote.Config, opts ...remote.Option) (*remote.Registry, error) {
	return remote.New(cfg, opts...)
}

// Setup connects a Client to the CloudLib instance described by remoteCfg.
func Setup(cfg Config, remoteCfg remote.Config, remoteOpts []remote.Option, opts ...Option) (*Client, error) {
	registry, err := remote.New(remoteCfg, remoteOpts...)
	if err != nil {
		return nil, err
	}
	return core.NewClient(cfg, registry, opts...)
}
