package ecs

import "errors"

var (
	// ErrComponentAlreadyRegistered indicates an attempt to register the same component type twice.
	ErrComponentAlreadyRegistered = errors.New("ecs: component already registered")
	// ErrComponentNotRegistered signals a lookup on a component type no store was registered for.
	ErrComponentNotRegistered = errors.New("ecs: component not registered")
	// ErrNilStoreConstructor is returned when registration receives a nil store constructor.
	ErrNilStoreConstructor = errors.New("ecs: nil store constructor")
	// ErrNilStore is returned when a store constructor produces a nil store.
	ErrNilStore = errors.New("ecs: constructor returned nil store")
	// ErrStoreTypeMismatch indicates a typed lookup found a store registered for a different component type.
	ErrStoreTypeMismatch = errors.New("ecs: store type mismatch")
	// ErrValueTypeMismatch indicates an erased write carried a value of the wrong component type.
	ErrValueTypeMismatch = errors.New("ecs: component value type mismatch")
	// ErrWorkerPoolClosed indicates jobs cannot be submitted because the pool closed.
	ErrWorkerPoolClosed = errors.New("ecs: worker pool closed")
	// ErrSchedulerClosed indicates task submission after the scheduler shut down.
	ErrSchedulerClosed = errors.New("ecs: scheduler closed")
)
