package service

import "github.com/m-mizutani/threatgraph/pkg/logging"

var logger = logging.Logger
