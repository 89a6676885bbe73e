package app

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"campus-idcards/app/controller"
	"campus-idcards/app/router"
	"campus-idcards/db"
	"campus-idcards/render"
	"campus-idcards/repository"
	"campus-idcards/service"
)

// Initialize wires the application and registers its routes on mux
func Initialize(mux *http.ServeMux) error {
	// Student database is optional: without it records come from sheet imports
	var students repository.StudentRepositoryInterface
	if os.Getenv("DATABASE_URL") != "" || os.Getenv("DB_HOST") != "" {
		if err := db.InitDB(); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		students = repository.NewStudentRepository()
	} else {
		log.Printf("⚠️  No database configured, student records can only be imported from sheets")
	}

	if err := db.InitRedis(); err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}

	// Fonts
	fonts := render.NewFontRegistry()
	if dir := os.Getenv("FONT_DIR"); dir != "" {
		n, err := fonts.LoadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to load fonts: %w", err)
		}
		log.Printf("✓ Loaded %d font files from %s", n, dir)
	}

	// Drive is only needed for drive: photo references
	var drive service.DriveServiceInterface
	if credentialsPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credentialsPath != "" {
		driveService, err := service.NewDriveService(credentialsPath)
		if err != nil {
			return err
		}
		drive = driveService
	}

	previews := service.NewDesignPreviewCache(envOr("PREVIEW_CACHE_DIR", "cache/previews"))
	if err := previews.EnsureCacheDir(); err != nil {
		return err
	}

	compositor := render.NewCompositor(fonts)
	photos := service.NewPhotoLoader(os.Getenv("DOCUMENTS_DIR"), drive)
	exports := service.NewExportService(compositor, photos)
	sessions, designs := newSessionStores()
	templates := service.NewTemplateService(sessions, designs, students, compositor, photos, exports, previews)

	controllers := &router.Controllers{
		Template: controller.NewTemplateController(templates),
		Export:   controller.NewExportController(templates),
	}
	if students != nil {
		controllers.Student = controller.NewStudentController(students)
	}

	router.SetupRoutes(mux, controllers)
	return nil
}

// Close releases the database and redis connections
func Close() {
	db.CloseRedis()
	db.CloseDB()
}

// newSessionStores picks redis when it is configured, memory otherwise
func newSessionStores() (repository.SessionStoreInterface, repository.DesignStoreInterface) {
	ttl := repository.DefaultSessionTTL
	if raw := os.Getenv("SESSION_TTL_MINUTES"); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
			ttl = time.Duration(minutes) * time.Minute
		} else {
			log.Printf("⚠️  Invalid SESSION_TTL_MINUTES %q, using %s", raw, ttl)
		}
	}
	if db.Redis != nil {
		log.Printf("💾 Editor sessions stored in redis (ttl %s)", ttl)
		return repository.NewRedisSessionStore(db.Redis, ttl), repository.NewRedisDesignStore(db.Redis, ttl)
	}
	log.Printf("💾 Editor sessions stored in memory (ttl %s)", ttl)
	return repository.NewMemorySessionStore(ttl), repository.NewMemoryDesignStore(ttl)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
