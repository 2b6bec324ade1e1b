package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Codegen / materialization
	CodegenInfo                  Code = 7000
	CodegenErroneousConstant     Code = 7001
	CodegenTLSCapture            Code = 7002
	CodegenPolymorphicConstant   Code = 7003
	CodegenMalformedConstant     Code = 7004
	CodegenStaticInitializer     Code = 7005
	CodegenDuplicateDefinition   Code = 7006
	CodegenUnsupportedRelocation Code = 7007

	// I/O and configuration
	IOInfo           Code = 9000
	IOLoadFileError  Code = 9001
	IOWriteFileError Code = 9002
	IOBadTargetSpec  Code = 9003
)

func (c Code) String() string {
	return fmt.Sprintf("KC%04d", uint16(c))
}
