// compileinfoprint is imported by the echelle binaries for the side effect of
// printing the compileinfo to os.StdErr and prefixing log lines with the
// binary name and commit
package compileinfoprint

import (
	"log"

	"github.com/carbocation/echelle/compileinfo"
)

func init() {
	compileinfo.PrintToStdErr()
	log.SetPrefix(compileinfo.Get().Short() + " ")
}
