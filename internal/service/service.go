package service

import (
	"geo-places/internal/biz"

	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewPlacesService, biz.NewPlaceUsecase)
