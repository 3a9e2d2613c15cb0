package mongotest

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/stretchr/testify/suite"
	"github.com/syntrixbase/docconn/pkg/connection"
	"go.mongodb.org/mongo-driver/mongo"
)

// Suite is a testify suite whose collections are cleared after every test.
//
// Embed it and run with suite.Run. The database is test_<DatabaseName>; when
// DatabaseName is empty it falls back to $MONGO_DATABASE_NAME, then to the
// alias database if a Runner already pointed it at a test database.
type Suite struct {
	suite.Suite

	Alias        string
	DatabaseName string
	Registry     *connection.Registry

	conn *connection.Connection
	db   *connection.Database
}

func (s *Suite) registry() *connection.Registry {
	if s.Registry != nil {
		return s.Registry
	}
	return connection.Default()
}

func (s *Suite) alias() string {
	if s.Alias != "" {
		return s.Alias
	}
	return connection.DefaultAlias
}

func (s *Suite) testDatabaseName() (string, error) {
	if s.DatabaseName != "" {
		return TestDatabaseName(s.DatabaseName), nil
	}
	if name := os.Getenv(DatabaseNameEnv); name != "" {
		return TestDatabaseName(name), nil
	}
	if settings, ok := s.registry().Settings(s.alias()); ok && strings.HasPrefix(settings.Name, testPrefix) {
		return settings.Name, nil
	}
	return "", ErrNoDatabaseName
}

func (s *Suite) SetupSuite() {
	name, err := s.testDatabaseName()
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	conn, err := s.registry().GetConnection(ctx, s.alias())
	if errors.Is(err, connection.ErrConnectFailed) {
		s.T().Skipf("MongoDB not available: %v", err)
	}
	s.Require().NoError(err)

	s.conn = conn
	s.db = conn.Database(name)
}

func (s *Suite) TearDownTest() {
	if s.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	s.NoError(ClearCollections(ctx, s.db), "clear test collections")
}

// Connection returns the connection of the suite alias.
func (s *Suite) Connection() *connection.Connection {
	return s.conn
}

// DB returns the test database.
func (s *Suite) DB() *connection.Database {
	return s.db
}

// Collection returns collection name of the test database.
func (s *Suite) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}
