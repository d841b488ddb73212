// reportcard-crm/internal/handlers/pwa_handler.go
//
// Артефакты PWA: веб-манифест с брендингом школы, service worker и
// офлайн-страница, чтобы установленный клиент работал без сети.
package handlers

import (
	"log/slog"
	"net/http"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
)

// serviceWorkerJS кэширует оболочку приложения и подставляет /api/offline
// при недоступной сети.
const serviceWorkerJS = `const CACHE_NAME = 'reportcard-v1';
const OFFLINE_URL = '/api/offline';

self.addEventListener('install', (event) => {
  event.waitUntil(
    caches.open(CACHE_NAME).then((cache) => cache.addAll([OFFLINE_URL]))
  );
  self.skipWaiting();
});

self.addEventListener('activate', (event) => {
  event.waitUntil(
    caches.keys().then((keys) =>
      Promise.all(keys.filter((k) => k !== CACHE_NAME).map((k) => caches.delete(k)))
    )
  );
  self.clients.claim();
});

self.addEventListener('fetch', (event) => {
  if (event.request.method !== 'GET') return;
  event.respondWith(
    fetch(event.request).catch(() =>
      caches.match(event.request).then((cached) => cached || caches.match(OFFLINE_URL))
    )
  );
});
`

// ManifestHandler отдаёт манифест, раскрашенный под школу запроса.
func ManifestHandler(c *gin.Context) {
	name := "Report Card Manager"
	shortName := "ReportCards"
	themeColor := "#667eea"
	backgroundColor := "#ffffff"

	if school := activeSchoolID(c); school != nil {
		var s models.School
		if err := config.DB.First(&s, *school).Error; err == nil {
			name = s.Name + " — Report Cards"
			shortName = s.Name
		}
		var profile models.SchoolProfile
		if err := config.DB.Where("school_id = ?", *school).First(&profile).Error; err == nil {
			if profile.PrimaryColor != "" {
				themeColor = profile.PrimaryColor
			}
		}
	}

	c.Header("Content-Type", "application/manifest+json")
	c.JSON(http.StatusOK, gin.H{
		"name":             name,
		"short_name":       shortName,
		"start_url":        "/",
		"display":          "standalone",
		"theme_color":      themeColor,
		"background_color": backgroundColor,
		"icons": []gin.H{
			{"src": "/media/icons/icon-192.png", "sizes": "192x192", "type": "image/png"},
			{"src": "/media/icons/icon-512.png", "sizes": "512x512", "type": "image/png"},
		},
	})
}

// ServiceWorkerHandler отдаёт service worker с корня, чтобы его scope
// покрывал всё приложение.
func ServiceWorkerHandler(c *gin.Context) {
	c.Header("Content-Type", "application/javascript")
	c.Header("Service-Worker-Allowed", "/")
	c.String(http.StatusOK, serviceWorkerJS)
}

// OfflineHandler - запасной ответ для офлайн-режима.
func OfflineHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"offline": true,
		"message": "Нет подключения к сети. Данные будут синхронизированы после восстановления связи.",
	})
}

// PWATrackHandler принимает телеметрию установки/использования PWA.
// Событие только логируется.
func PWATrackHandler(c *gin.Context) {
	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slog.Info("PWA event", "user_id", currentUserID(c), "payload", payload)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
