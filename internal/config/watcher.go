package config

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"go.uber.org/zap"

	"lotto-server/common/logger"
)

func newNacosClient(p *nacosParams) (config_client.IConfigClient, error) {
	cli, err := clients.NewConfigClient(vo.NacosClientParam{
		ClientConfig:  &p.client,
		ServerConfigs: p.servers,
	})
	if err != nil {
		return nil, fmt.Errorf("create nacos config client: %w", err)
	}
	return cli, nil
}

// StartWatch listens for Nacos changes and calls onChange(old, new) after
// storing the new config. Without NACOS_SERVER_ADDR it does nothing.
// Listening stops when ctx is done.
func StartWatch(ctx context.Context, onChange func(oldCfg, newCfg *Config)) error {
	if getEnvOrDefault("NACOS_SERVER_ADDR", "") == "" {
		logger.Info("config: nacos not configured, watch skipped")
		return nil
	}
	p, err := nacosFromEnv()
	if err != nil {
		return err
	}
	cli, err := newNacosClient(p)
	if err != nil {
		return err
	}

	param := vo.ConfigParam{
		DataId: p.dataID,
		Group:  p.group,
		OnChange: func(namespace, group, dataID, data string) {
			newCfg, err := parse(dataID, []byte(data))
			if err != nil {
				logger.Warn("config: bad nacos update ignored", zap.String("data_id", dataID), zap.Error(err))
				return
			}
			applyChange(newCfg, onChange)
			logger.Info("config: nacos update applied", zap.String("namespace", namespace),
				zap.String("group", group), zap.String("data_id", dataID))
		},
	}
	if err := cli.ListenConfig(param); err != nil {
		return fmt.Errorf("listen nacos config: %w", err)
	}

	go func() {
		<-ctx.Done()
		_ = cli.CancelListenConfig(vo.ConfigParam{DataId: p.dataID, Group: p.group})
		cli.CloseClient()
	}()
	return nil
}

// applyChange runs an update through the same overrides and defaults as Load.
func applyChange(newCfg *Config, onChange func(oldCfg, newCfg *Config)) {
	if err := env.Parse(newCfg); err != nil {
		logger.Warn("config: env overrides on update failed", zap.Error(err))
	}
	newCfg.applyDefaults()

	oldCfg := GetCurrent()
	SetCurrent(newCfg)
	if oldCfg == nil || oldCfg.Server.LogLevel != newCfg.Server.LogLevel {
		logger.SetLevel(newCfg.Server.LogLevel)
	}
	if onChange != nil {
		onChange(oldCfg, newCfg)
	}
}
