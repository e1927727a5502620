package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/staranto/catinfo/internal/meta"
	"github.com/urfave/cli/v3"
)

const bashCompletionScript = `# bash completion for catinfo
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_catinfo()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "breeds bq breed images cache completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local root="--api-key --api-url --cache-dir --no-cache"
    local common="$root --attrs -a --color -c --filter -f --local --output -o --sort -s --titles -t --tldr --schema"
    local paging="--limit -l --page -p --pages"

    case "$cmd" in
        breeds|bq)
            local opts="$common"
            ;;
        breed)
            local opts="$common --breed -b --no-image --save"
            ;;
        images)
            local opts="$common $paging --breed -b --list"
            ;;
        cache)
            if [[ ${COMP_CWORD} -eq 2 ]]; then
                COMPREPLY=( $(compgen -W "stats clear sweep warm" -- "$cur") )
                return 0
            fi
            case "${COMP_WORDS[2]}" in
                stats) local opts="$common --entries" ;;
                warm)  local opts="$root $paging --breed -b" ;;
                *)     local opts="$root" ;;
            esac
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$common"
            ;;
    esac

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "text json raw yaml" -- "$cur") )
        return 0
    fi

    if [[ "$prev" == "--save" || "$prev" == "--cache-dir" ]]; then
        COMPREPLY=( $(compgen -f -- "$cur") )
        return 0
    fi

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _catinfo catinfo
`

const zshCompletionScript = `#compdef catinfo

_catinfo() {
  local -a cmds
  cmds=(
    'breeds:breed catalog query'
    'bq:breed catalog query'
    'breed:show one breed and its picture'
    'images:browse or list breed pictures'
    'cache:manage the image cache'
    'completion:generate shell completion script'
  )

  local -a root
  root=(
  '--api-key[catalog API key]:key'
  '--api-url[catalog base URL]:url'
  '--cache-dir[image cache directory]:dir:_directories'
  '--no-cache[keep images in memory only]'
  )

  local -a common
  common=(
  $root
  '(-a --attrs)'{-a,--attrs}'[attributes to include]:attrs'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '--local[local timestamps]'
  '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  '--schema[dump schema]'
  '--tldr[show tldr page]'
  )

  local -a paging
  paging=(
  '(-l --limit)'{-l,--limit}'[images per page]:limit'
  '(-p --page)'{-p,--page}'[first page]:page'
  '--pages[number of pages]:pages'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'catinfo commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    breeds|bq)
      _arguments -C $common
      ;;
    breed)
      _arguments -C \
        $common \
        '(-b --breed)'{-b,--breed}'[breed id]:breed' \
        '--no-image[skip the picture]' \
        '--save[write the picture to a file]:file:_files' \
        '1::breed id:'
      ;;
    images)
      _arguments -C \
        $common \
        $paging \
        '(-b --breed)'{-b,--breed}'[breed id]:breed' \
        '--list[print results instead of the carousel]' \
        '1::breed id:'
      ;;
    cache)
      if (( CURRENT == 3 )); then
        _values 'cache command' stats clear sweep warm
        return
      fi
      case $words[3] in
        stats) _arguments -C $common '--entries[list disk entries]' ;;
        warm)  _arguments -C $root $paging '(-b --breed)'{-b,--breed}'[breed id]:breed' '1::breed id:' ;;
        *)     _arguments -C $root ;;
      esac
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _catinfo catinfo
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Fprint(stdout, bashCompletionScript)
	case "zsh":
		fmt.Fprint(stdout, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		if strings.HasSuffix(sh, "zsh") {
			fmt.Fprint(stdout, zshCompletionScript)
		} else if strings.HasSuffix(sh, "bash") {
			fmt.Fprint(stdout, bashCompletionScript)
		} else {
			fmt.Fprintln(os.Stderr, "usage: catinfo completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func CompletionCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "catinfo completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
