// reportcard-crm/config/auth.go
package config

import (
	"log/slog"
	"os"
	"time"
)

// JwtKey - секрет для подписи JWT токенов. Инициализируется в LoadAuthConfig.
var JwtKey []byte

const (
	AccessTokenTTL  = 2 * time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
)

func LoadAuthConfig() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		slog.Error("Критическая ошибка: переменная окружения JWT_SECRET не установлена.")
		os.Exit(1)
	}
	JwtKey = []byte(secret)
}

// MediaDir возвращает каталог для загружаемых файлов (логотипы, PDF табелей).
func MediaDir() string {
	dir := os.Getenv("MEDIA_DIR")
	if dir == "" {
		dir = "./media"
	}
	return dir
}
