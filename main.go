package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/beka-birhanu/navstudy/config"
	"github.com/beka-birhanu/navstudy/game/play"
	logger "github.com/beka-birhanu/navstudy/infrastruture/log"
	"github.com/beka-birhanu/navstudy/infrastruture/poolcache"
	"github.com/beka-birhanu/navstudy/infrastruture/repo"
	"github.com/beka-birhanu/navstudy/infrastruture/sqlite"
	"github.com/beka-birhanu/navstudy/service"
	"github.com/beka-birhanu/navstudy/service/i"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var version = "0.1.0"

// Global variables for dependencies
var (
	mongoClient    *mongo.Client
	redisClient    *redis.Client
	sessionRepo    *repo.SessionRepo
	trialStore     *sqlite.TrialStore
	poolCache      i.PoolCache
	study          *config.Study
	sessionManager *service.StudySessionManager
	appLogger      *logger.Logger
)

func newLogger(prefix, color string) *logger.Logger {
	lg, err := logger.New(prefix, color, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Creating %s logger: %v\n", prefix, err)
		os.Exit(1)
	}
	lg.SetDebug(config.Envs.LogLevel == "debug")
	return lg
}

func initStudy() {
	var err error
	study, err = config.LoadStudy(config.Envs.StudyConfig)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Loading study configuration: %v", err))
		os.Exit(1)
	}
	appLogger.Debug(fmt.Sprintf("Study %s loaded: grid=%d learning=%d memory=%d", study.ID, study.GridSize, study.LearningTrials, study.MemoryTrials))
}

func initMongo(ctx context.Context) {
	if config.Envs.DBHost == "" {
		appLogger.Info("MongoDB disabled: DB_HOST is empty")
		return
	}

	uri := fmt.Sprintf("mongodb://%s:%v", config.Envs.DBHost, config.Envs.DBPort)
	if config.Envs.DBUser != "" {
		uri = fmt.Sprintf("mongodb://%s:%s@%s:%v", config.Envs.DBUser, config.Envs.DBPassword, config.Envs.DBHost, config.Envs.DBPort)
	}

	clientOptions := options.Client().ApplyURI(uri)
	var err error
	mongoClient, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Failed to connect to MongoDB: %v", err))
		os.Exit(1)
	}
	if err = mongoClient.Ping(ctx, nil); err != nil {
		appLogger.Error(fmt.Sprintf("MongoDB ping failed: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Connected to MongoDB")

	sessionRepo = repo.NewSessionRepo(mongoClient, config.Envs.DBName, config.Envs.DBCollection)
	appLogger.Info("Session repository initialized")
}

func initRedis(ctx context.Context) {
	if config.Envs.RedisAddr == "" {
		appLogger.Info("Pool cache disabled: REDIS_ADDR is empty")
		return
	}

	redisClient = redis.NewClient(&redis.Options{
		Addr:     config.Envs.RedisAddr,
		Password: config.Envs.RedisPassword,
		DB:       config.Envs.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		appLogger.Error(fmt.Sprintf("Redis ping failed: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Connected to Redis")

	poolCache = poolcache.NewRedisPoolCache(redisClient, config.Envs.PoolCacheTTL)
	appLogger.Info("Pool cache initialized")
}

func initSQLite() {
	if config.Envs.SQLitePath == "" {
		appLogger.Info("Trial export disabled: SQLITE_PATH is empty")
		return
	}

	var err error
	trialStore, err = sqlite.NewTrialStore(config.Envs.SQLitePath)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Opening trial store: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Trial store initialized")
}

func initSessionManager(render play.RenderSink) {
	var repos []i.SessionRepo
	if sessionRepo != nil {
		repos = append(repos, sessionRepo)
	}
	if trialStore != nil {
		repos = append(repos, trialStore)
	}
	if len(repos) == 0 {
		appLogger.Warning("No repository configured; finished sessions will not be stored")
	}

	var err error
	sessionManager, err = service.NewStudySessionManager(&service.Config{
		Study:  study,
		Cache:  poolCache,
		Repos:  repos,
		Render: render,
		Logger: newLogger("SESSION-MANAGER", config.ColorCyan),
	})
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating session manager: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Session manager initialized")
}

// initBackends connects every configured backend and returns a func closing them.
func initBackends(ctx context.Context) func() {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	initMongo(connectCtx)
	initRedis(connectCtx)
	initSQLite()

	return func() {
		if mongoClient != nil {
			_ = mongoClient.Disconnect(context.Background())
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
		if trialStore != nil {
			_ = trialStore.Close()
		}
	}
}

func main() {
	appLogger = newLogger("APP", config.ColorGreen)

	rootCmd := &cobra.Command{
		Use:   "navstudy",
		Short: "Vehicle navigation study",
		Long: `navstudy runs the vehicle navigation experiment.

Participants learn the controls of several vehicles in small grid mazes and
then plan key sequences for vehicles they have or have not driven. Finished
sessions are stored in MongoDB and as flat trial rows in SQLite.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initStudy()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newPlayCmd(),
		newPoolCmd(),
		newQueueCmd(),
		newExportCmd(),
		newShowCmd(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		appLogger.Error(err.Error())
		os.Exit(1)
	}
}
