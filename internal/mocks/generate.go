// Package mocks provides mock implementations for testing the session layer.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	profiles := mocks.NewMockProfileSource(ctrl)
//	profiles.EXPECT().FetchProfile(gomock.Any(), gomock.Any()).Return(user, nil)
package mocks

// Generate mocks for the RecordStore, ProfileSource and RecordPurger interfaces from internal/ports.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ports_mock.go github.com/akmalstorm/stdcalumni/internal/ports RecordStore,ProfileSource,RecordPurger
