package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type PoolOptions struct {
	MaxConns int           `cfg:"maxConns" def:"10" validate:"gte=0"`
	MaxIdle  int           `cfg:"maxIdle" def:"5"`
	Lifetime time.Duration `cfg:"lifetime" def:"1h"`
}

type DatabaseOptions struct {
	Driver string      `cfg:"driver" validate:"required"`
	DSN    string      `cfg:"dsn"`
	Host   string      `cfg:"host" def:"localhost"`
	Port   int         `cfg:"port" def:"3306"`
	Tags   []string    `cfg:"tags" def:"a, b"`
	Debug  *bool       `cfg:"debug" def:"true"`
	Pool   PoolOptions `cfg:"pool"`
}

type AppOptions struct {
	Name     string           `cfg:"name" def:"ormx"`
	Database *DatabaseOptions `cfg:"database" validate:"required"`
}

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	files := map[string]string{
		"app.yaml": "database:\n  driver: sqlite3\n  dsn: ':memory:'\n  pool:\n    maxConns: 2\n",
		"app.toml": "[database]\ndriver = \"sqlite3\"\ndsn = \":memory:\"\n[database.pool]\nmaxConns = 2\n",
		"app.json": `{"database": {"driver": "sqlite3", "dsn": ":memory:", "pool": {"maxConns": 2}}}`,
		"app.ini":  "[database]\ndriver = sqlite3\ndsn = :memory:\n[database.pool]\nmaxConns = 2\n",
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			var options AppOptions
			require.NoError(t, Load(writeFile(t, name, content), &options))

			assert.Equal(t, "ormx", options.Name)
			require.NotNil(t, options.Database)
			assert.Equal(t, "sqlite3", options.Database.Driver)
			assert.Equal(t, ":memory:", options.Database.DSN)
			assert.Equal(t, "localhost", options.Database.Host)
			assert.Equal(t, 3306, options.Database.Port)
			assert.Equal(t, []string{"a", "b"}, options.Database.Tags)
			require.NotNil(t, options.Database.Debug)
			assert.True(t, *options.Database.Debug)
			assert.Equal(t, 2, options.Database.Pool.MaxConns)
			assert.Equal(t, 5, options.Database.Pool.MaxIdle)
			assert.Equal(t, time.Hour, options.Database.Pool.Lifetime)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	path := writeFile(t, "app.yaml", "database:\n  driver: sqlite3\n  pool:\n    maxConns: 2\n")

	var options AppOptions
	require.NoError(t, Load(path, &options, WithEnvPrefix("ormx"), WithEnviron([]string{
		"ORMX_DATABASE_DRIVER=mysql",
		"ORMX_DATABASE_POOL_MAXCONNS=20",
		"ORMX_DATABASE_HOST=db.internal",
		"OTHER_NAME=ignored",
	})))

	assert.Equal(t, "mysql", options.Database.Driver)
	assert.Equal(t, 20, options.Database.Pool.MaxConns)
	assert.Equal(t, "db.internal", options.Database.Host)
	assert.Equal(t, "ormx", options.Name)
}

func TestLoadInvalid(t *testing.T) {
	var options AppOptions

	assert.Error(t, Load(writeFile(t, "app.yaml", "name: x\n"), &options), "缺少必填项")
	assert.Error(t, Load(writeFile(t, "app.yaml", "database:\n  driver: ''\n"), &options))
	assert.Error(t, Load(writeFile(t, "app.xml", "<a/>"), &options))
	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.yaml"), &options))
	assert.Error(t, Load(writeFile(t, "app.yaml", "database:\n  driver: sqlite3\n  pool:\n    maxConns: -1\n"), &options))
}

func TestSetDefaults(t *testing.T) {
	options := PoolOptions{MaxConns: 3}
	require.NoError(t, SetDefaults(&options))
	assert.Equal(t, 3, options.MaxConns)
	assert.Equal(t, 5, options.MaxIdle)

	assert.Error(t, SetDefaults(options))
	assert.Error(t, SetDefaults(&struct {
		M map[string]string `def:"x"`
	}{}))
}
