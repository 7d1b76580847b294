package ecs

import "fmt"

// NewCreateEntityCommand enqueues an entity creation. If target is non-nil
// it receives the allocated handle when the command applies.
func NewCreateEntityCommand(target *Entity) Command {
	return createEntityCommand{target: target}
}

// NewDestroyEntityCommand enqueues an entity destruction. Destroying a
// handle that is already stale by apply time is a no-op, so two tasks may
// safely condemn the same entity in one batch.
func NewDestroyEntityCommand(e Entity) Command {
	return destroyEntityCommand{entity: e}
}

// NewAddComponentCommand enqueues a component write. The component may be
// a value or a pointer to one; its concrete type selects the target store
// when the command applies.
func NewAddComponentCommand(e Entity, component any) Command {
	cmd := addComponentCommand{entity: e}
	if component != nil {
		cmd.name, cmd.value = normalizeComponent(component)
	}
	return cmd
}

// NewRemoveComponentCommand enqueues a component removal. Only the
// prototype's concrete type matters; its value is ignored.
func NewRemoveComponentCommand(e Entity, prototype any) Command {
	cmd := removeComponentCommand{entity: e}
	if prototype != nil {
		cmd.name, _ = normalizeComponent(prototype)
	}
	return cmd
}

type createEntityCommand struct {
	target *Entity
}

type destroyEntityCommand struct {
	entity Entity
}

type addComponentCommand struct {
	entity Entity
	name   string
	value  any
}

type removeComponentCommand struct {
	entity Entity
	name   string
}

func (c createEntityCommand) Apply(world *World) error {
	e := world.alloc.Create()
	if c.target != nil {
		*c.target = e
	}
	return nil
}

func (c destroyEntityCommand) Apply(world *World) error {
	world.DestroyEntity(c.entity)
	return nil
}

func (c addComponentCommand) Apply(world *World) error {
	if c.entity.IsZero() {
		return fmt.Errorf("ecs: add component to zero entity")
	}
	if c.value == nil {
		return fmt.Errorf("%w: nil component", ErrValueTypeMismatch)
	}
	cell, ok := world.storages.lookup(c.name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrComponentNotRegistered, c.name)
	}
	return cell.store.Set(c.entity, c.value)
}

func (c removeComponentCommand) Apply(world *World) error {
	if c.entity.IsZero() {
		return fmt.Errorf("ecs: remove component from zero entity")
	}
	if c.name == "" {
		return fmt.Errorf("%w: nil component prototype", ErrValueTypeMismatch)
	}
	cell, ok := world.storages.lookup(c.name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrComponentNotRegistered, c.name)
	}
	cell.store.Discard(c.entity)
	return nil
}

var (
	_ Command = createEntityCommand{}
	_ Command = destroyEntityCommand{}
	_ Command = addComponentCommand{}
	_ Command = removeComponentCommand{}
)
