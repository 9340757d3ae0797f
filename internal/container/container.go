package container

import (
	"time"

	app "qc-vision/internal/application"
	"qc-vision/internal/detection"
	"qc-vision/internal/domain/port"
	"qc-vision/internal/playback"
)

// Deps внешние зависимости сервисов приложения
type Deps struct {
	Users      port.UserRepository
	Operations port.OperationRepository
	Anomalies  port.AnomalyRepository

	Model     port.DefectModel
	Opener    port.VideoOpener
	Describer port.DefectDescriber
	Observers []port.InspectionObserver

	Inspection        app.InspectionConfig
	DefaultConfidence int
	Location          *time.Location
	LoopOptions       []playback.Option
}

type Container struct {
	Sessions          *app.SessionStore
	Playbacks         *app.PlaybackRegistry
	AuthService       *app.AuthService
	UserService       *app.UserService
	InspectionService *app.InspectionService
	LabelingService   *app.LabelingService
}

func New(deps Deps) *Container {
	sessions := app.NewSessionStore()
	pipeline := detection.NewPipeline(deps.Model)

	inspectionService := app.NewInspectionService(
		pipeline,
		deps.Describer,
		deps.Opener,
		deps.Anomalies,
		deps.Inspection,
		deps.LoopOptions...,
	)
	inspectionService.Observe(deps.Observers...)

	return &Container{
		Sessions:          sessions,
		Playbacks:         app.NewPlaybackRegistry(),
		AuthService:       app.NewAuthService(deps.Users, deps.Operations, sessions, deps.DefaultConfidence),
		UserService:       app.NewUserService(deps.Users),
		InspectionService: inspectionService,
		LabelingService:   app.NewLabelingService(deps.Anomalies, deps.Location),
	}
}
