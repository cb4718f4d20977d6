package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"webdesk/models"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Repositories bundles the record stores for the configured database.
type Repositories struct {
	Files FileRepository
	Users UserRepository
	close func(ctx context.Context) error
}

func (r *Repositories) Close(ctx context.Context) error {
	if r.close == nil {
		return nil
	}
	return r.close(ctx)
}

type DatabaseConfig struct {
	Driver       string
	MongoURI     string
	DatabaseName string
	DSN          string
}

// Open connects to the configured database and returns ready repositories.
func Open(ctx context.Context, cfg DatabaseConfig, logger *zap.Logger) (*Repositories, error) {
	switch cfg.Driver {
	case DriverMongo, "":
		return openMongo(ctx, cfg, logger)
	case DriverPostgres, DriverSQLite:
		db, err := OpenGorm(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to SQL database", zap.String("driver", cfg.Driver))
		return NewGormRepositories(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openMongo(ctx context.Context, cfg DatabaseConfig, logger *zap.Logger) (*Repositories, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	repos, err := initMongo(connectCtx, client, cfg.DatabaseName)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to MongoDB", zap.String("database", cfg.DatabaseName))
	return repos, nil
}

// initMongo checks the connection and prepares indexes. The client is
// disconnected when either step fails.
func initMongo(ctx context.Context, client *mongo.Client, database string) (repos *Repositories, err error) {
	defer func() {
		if err != nil {
			_ = client.Disconnect(context.Background())
		}
	}()

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	files := NewMongoFileRepository(db)
	users := NewMongoUserRepository(db)
	if err := files.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	if err := users.EnsureIndexes(ctx); err != nil {
		return nil, err
	}

	return &Repositories{
		Files: files,
		Users: users,
		close: client.Disconnect,
	}, nil
}

// OpenGorm opens a postgres or sqlite database and migrates the schema.
func OpenGorm(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// sqlite allows one writer at a time
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&models.User{}, &models.File{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func NewGormRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Files: NewGormFileRepository(db),
		Users: NewGormUserRepository(db),
		close: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}
