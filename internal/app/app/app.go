package grpcapp

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/IlianBuh/Wall/internal/lib/errors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Service is the name the relay reports its health under
const Service = "wall.relay"

type App struct {
	log      *slog.Logger
	port     int
	grpcsrvr *grpc.Server
	health   *health.Server
	listener net.Listener
}

func New(
	log *slog.Logger,
	port int,
) *App {
	recoveryOpt := []recovery.Option{
		recovery.WithRecoveryHandler(
			func(p any) error {
				log.Error("recover panic", slog.Any("panic", p))

				return status.Errorf(codes.Internal, "internal error")
			},
		),
	}

	grpcsrvr := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			recovery.UnaryServerInterceptor(recoveryOpt...),
		),
		grpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(recoveryOpt...),
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcsrvr, hs)
	hs.SetServingStatus(Service, healthpb.HealthCheckResponse_NOT_SERVING)

	return &App{
		log:      log,
		port:     port,
		grpcsrvr: grpcsrvr,
		health:   hs,
	}
}

// SetServing switches reported health of the relay
func (a *App) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}

	a.health.SetServingStatus(Service, st)
}

func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic("failed to run application: " + err.Error())
	}
}

// Listen binds the port. Run calls it if the port is not bound yet
func (a *App) Listen() error {
	const op = "grpcapp.Listen"

	l, err := net.Listen("tcp", fmt.Sprintf(":%d", a.port))
	if err != nil {
		return errors.Fail(op, err)
	}
	a.listener = l

	return nil
}

// Addr returns bound address or nil before Listen
func (a *App) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}

	return a.listener.Addr()
}

func (a *App) Run() error {
	const op = "grpcapp.Run"
	log := a.log.With(slog.String("op", op))

	if a.listener == nil {
		if err := a.Listen(); err != nil {
			return errors.Fail(op, err)
		}
	}

	log.Info("starting grpc server", slog.String("addr", a.listener.Addr().String()))

	if err := a.grpcsrvr.Serve(a.listener); err != nil {
		return errors.Fail(op, err)
	}

	return nil
}

func (a *App) Stop() {
	const op = "grpcapp.Stop"

	a.log.Info("stop grpc application", slog.String("op", op))

	a.health.Shutdown()
	a.grpcsrvr.GracefulStop()

	a.log.Info("grpc application stopped", slog.String("op", op))
}
