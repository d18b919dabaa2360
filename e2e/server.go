package e2e

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"time"

	actorstore "filegov/internal/actor/store"
	fileshandler "filegov/internal/files/handler"
	filesservice "filegov/internal/files/service"
	filestore "filegov/internal/files/store"
	govhandler "filegov/internal/governance/handler"
	govservice "filegov/internal/governance/service"
	govstore "filegov/internal/governance/store"
	jwttoken "filegov/internal/jwt_token"
	notifyhandler "filegov/internal/notification/handler"
	notifyservice "filegov/internal/notification/service"
	notifystore "filegov/internal/notification/store"
	"filegov/internal/platform/health"
	"filegov/internal/seeder"
	httptransport "filegov/internal/transport/http"
)

const inProcessSigningKey = "e2e-signing-key"

// startInProcess serves a freshly seeded in-memory deployment. Every
// scenario gets its own, so scenarios never see each other's requests.
func startInProcess() (*httptest.Server, *jwttoken.JWTService, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	actors := actorstore.NewInMemory()
	files := filestore.NewInMemory()
	requests := govstore.NewInMemory()
	notifications := notifystore.NewInMemory()

	if err := seeder.New(actors, files, logger).SeedAll(context.Background()); err != nil {
		return nil, nil, err
	}

	notifySvc := notifyservice.New(notifications, actors, notifyservice.WithLogger(logger))
	filesSvc := filesservice.New(files, files, filesservice.NewInMemoryTx(files), actors,
		filesservice.WithLogger(logger),
		filesservice.WithDepartmentNamer(actors),
	)
	govSvc := govservice.New(requests, files, govservice.NewInMemoryTx(requests, files, nil), actors,
		govservice.WithLogger(logger),
		govservice.WithNotifier(notifySvc),
		govservice.WithDepartmentNamer(actors),
	)

	tokens := jwttoken.NewJWTService(inProcessSigningKey, "filegov", "filegov-console", time.Hour)
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:    logger,
		Validator: tokens,
		Health:    health.New("e2e"),
		Protected: []httptransport.Registrar{
			fileshandler.New(filesSvc, logger),
			govhandler.New(govSvc, logger),
			notifyhandler.New(notifySvc, logger),
		},
	})
	return httptest.NewServer(router), tokens, nil
}
