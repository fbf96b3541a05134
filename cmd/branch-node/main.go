package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/RentalGrid/RentalGrid/internal/cluster"
	"github.com/RentalGrid/RentalGrid/internal/common/config"
	"github.com/RentalGrid/RentalGrid/internal/common/db"
	"github.com/RentalGrid/RentalGrid/internal/common/logger"
	"github.com/RentalGrid/RentalGrid/internal/common/server"
	"github.com/RentalGrid/RentalGrid/internal/common/tracing"
	"github.com/RentalGrid/RentalGrid/internal/node"
	"github.com/RentalGrid/RentalGrid/internal/seal"
	"google.golang.org/grpc"
)

var (
	configPath = flag.String("config", "configs/branch-node.json", "配置文件路径")
	consulHost = flag.String("consul-host", "", "从 Consul KV 加载配置时的地址，空则读本地文件")
	consulPort = flag.Int("consul-port", 8500, "Consul 端口")
	consulKey  = flag.String("consul-key", "rentalgrid/branch-node", "Consul KV 配置键")
)

func main() {
	flag.Parse()

	// 加载配置：优先 Consul KV，未指定则读本地文件
	var (
		cfg *config.Config
		err error
	)
	if *consulHost != "" {
		cfg, err = config.LoadConfigFromConsulKV(*consulHost, *consulPort, *consulKey)
	} else {
		cfg, err = config.LoadConfig(*configPath)
	}
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	if cfg.Node.ClusterID == 0 {
		panic("branch-node requires cluster_id > 0 (0 is the head node)")
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	_, closer, err := tracing.InitTracer(cfg.Node.Name, cfg.Jaeger.Endpoint, cfg.Jaeger.Sampler)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}

	// 初始化数据库
	gormDB, err := db.NewMySQL(cfg.Database)
	if err != nil {
		log.Fatalf("failed to init mysql: %v", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		log.Fatalf("failed to migrate mysql schema: %v", err)
	}
	repos := node.NewGormRepos(gormDB)

	// 集群信道先上线，总部会合时要探测本节点
	transport := cluster.NewTransport(cfg, seal.New(cfg.Cluster.SealPassphrase), log)
	defer transport.Close()

	stopCh := make(chan struct{})
	grpcDone := make(chan error, 1)
	go func() {
		grpcDone <- server.RunGRPCServer(cfg, log, func(s *grpc.Server) error {
			transport.Register(s)
			return nil
		}, server.WithStopChannel(stopCh))
	}()

	// 会合：等总部灌入分支参考数据
	dir, err := node.WaitForDirectory(context.Background(), repos.Branches, cfg.Node.ClusterID, log)
	if err != nil {
		log.Fatalf("branch rendezvous failed: %v", err)
	}

	nc, err := node.NewContext(cfg, log, repos, dir, transport)
	if err != nil {
		log.Fatalf("failed to assemble node: %v", err)
	}
	log.Infof("branch %s (cluster id %d) ready", nc.Self.Name, cfg.Node.ClusterID)

	// 串行消息循环，一直跑到收到停机广播
	if err := node.NewOffice(nc).Run(context.Background()); err != nil {
		log.Errorf("branch office exited with error: %v", err)
	}

	close(stopCh)
	if err := <-grpcDone; err != nil {
		log.Fatalf("branch-node exited with error: %v", err)
	}
}
