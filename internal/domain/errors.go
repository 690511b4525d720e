package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")

	// ErrConflict: violación de unicidad (código de barras de otro producto, email en uso).
	ErrConflict = errors.New("conflicto con el estado actual")
	// ErrInUse: borrado de una entidad referenciada por stock o historial.
	ErrInUse = errors.New("recurso referenciado por el historial")

	ErrInvalidQuantity   = errors.New("cantidad inválida")
	ErrInsufficientStock = errors.New("stock insuficiente")
	// ErrNegativeQuantity indica que una fila del libro quedaría negativa.
	// Nunca debe alcanzarse desde el motor: es un fallo interno que se alerta, no un error de cliente.
	ErrNegativeQuantity = errors.New("cantidad en libro negativa")

	// ErrTransient marca fallos reintentables del almacenamiento (lock timeout, deadlock, serialización).
	ErrTransient = errors.New("fallo transitorio de almacenamiento")
	// ErrUnavailable se devuelve cuando se agotan los reintentos de un fallo transitorio.
	ErrUnavailable = errors.New("servicio no disponible temporalmente")
)
