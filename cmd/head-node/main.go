package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/RentalGrid/RentalGrid/internal/branch"
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
	configPath = flag.String("config", "configs/head-node.json", "配置文件路径")
	consulHost = flag.String("consul-host", "", "从 Consul KV 加载配置时的地址，空则读本地文件")
	consulPort = flag.Int("consul-port", 8500, "Consul 端口")
	consulKey  = flag.String("consul-key", "rentalgrid/head-node", "Consul KV 配置键")
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
	if cfg.Node.ClusterID != 0 {
		panic("head-node requires cluster_id = 0")
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

	// 初始化数据库并灌入分支参考数据
	gormDB, err := db.NewMySQL(cfg.Database)
	if err != nil {
		log.Fatalf("failed to init mysql: %v", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		log.Fatalf("failed to migrate mysql schema: %v", err)
	}
	repos := node.NewGormRepos(gormDB)

	ctx := context.Background()
	if err := branch.Seed(ctx, repos.Branches, &cfg.Cluster); err != nil {
		log.Fatalf("failed to seed branches: %v", err)
	}
	dir, err := branch.Load(ctx, repos.Branches, cfg.Node.ClusterID)
	if err != nil {
		log.Fatalf("failed to load branch directory: %v", err)
	}

	// 集群信道：总部也要收分支的应答
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

	// 会合：所有分支节点在线后才放开对外入口
	if err := node.WaitForBranches(ctx, transport, &cfg.Cluster, log); err != nil {
		log.Fatalf("head rendezvous failed: %v", err)
	}

	nc, err := node.NewContext(cfg, log, repos, dir, transport)
	if err != nil {
		log.Fatalf("failed to assemble node: %v", err)
	}
	log.Infof("head node ready, %d branches online", len(dir.All()))

	// 对外 HTTP 边缘，停机广播完成后返回
	if err := node.RunEdge(nc); err != nil {
		log.Errorf("edge exited with error: %v", err)
	}

	close(stopCh)
	if err := <-grpcDone; err != nil {
		log.Fatalf("head-node exited with error: %v", err)
	}
}
