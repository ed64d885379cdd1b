package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadFrom_DefaultsAndFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
server:
  port: 8081
jwt:
  secret: test-secret
payment:
  base_url: https://library.example.com
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "https://library.example.com", cfg.Payment.BaseURL)
	assert.Equal(t, 30*time.Minute, cfg.Payment.SessionTTL)
	assert.Equal(t, 5, cfg.Pagination.PageSize)
	assert.Equal(t, 4096, cfg.Telegram.MessageLimit)
	assert.Empty(t, cfg.Payment.SecretKey, "未配置密钥时网关不可用")
	assert.False(t, cfg.Telegram.Enabled())
}

func TestLoadFrom_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "jwt:\n  secret: from-file\n")
	t.Setenv("LIBRARY_JWT_SECRET", "from-env")
	t.Setenv("LIBRARY_PAYMENT_SECRET_KEY", "sk_test_123")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "sk_test_123", cfg.Payment.SecretKey)
}

func TestLoadFrom_EnvSpecificFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "jwt:\n  secret: s\nserver:\n  port: 8080\n")
	writeConfig(t, dir, "config.prod.yaml", "server:\n  mode: release\n")
	t.Setenv("LIBRARY_ENV", "prod")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, 8080, cfg.Server.Port, "基础配置应保留")
}

func TestLoadFrom_Validation(t *testing.T) {
	cases := map[string]string{
		"缺少JWT密钥":   "server:\n  port: 8080\n",
		"端口冲突":      "jwt:\n  secret: s\nserver:\n  port: 9090\n",
		"会话有效期过短":   "jwt:\n  secret: s\npayment:\n  session_ttl: 5m\n",
		"不支持的驱动":    "jwt:\n  secret: s\ndatabase:\n  driver: oracle\n",
		"分页大小超过上限": "jwt:\n  secret: s\npagination:\n  page_size: 500\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "config.yaml", content)

			_, err := LoadFrom(dir)
			assert.Error(t, err)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	mysql := DatabaseConfig{
		Driver: "mysql", User: "root", Password: "pw", Host: "db", Port: 3306,
		DBName: "library", Charset: "utf8mb4", ParseTime: true, Loc: "Asia/Shanghai",
	}
	assert.Equal(t, "root:pw@tcp(db:3306)/library?charset=utf8mb4&parseTime=true&loc=Asia%2FShanghai", mysql.DSN())

	pg := DatabaseConfig{Driver: "postgres", User: "u", Password: "p", Host: "pg", Port: 5432, DBName: "library", Loc: "UTC"}
	assert.Equal(t, "host=pg port=5432 user=u password=p dbname=library sslmode=disable TimeZone=UTC", pg.DSN())
}
